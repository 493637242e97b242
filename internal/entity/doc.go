// Package entity defines the host entity boundary consumed by the bridging
// store and the sheet controller, plus an in-memory host document.
//
// The host owns entity identity and lifetime. Sheets never create or destroy
// documents; they read snapshots and request updates through CommitUpdate.
// A rejected update (permission, validation, persistence) is reported by a
// false result and recorded as a RejectionError; it never panics.
//
// Documents fire change listeners after every accepted commit that changes
// their content. Hosts wire listeners to the renderer registry so open
// sheets re-render on external edits. A commit whose content equals the
// current content is accepted as a no-op and fires nothing, which is what
// stops a sheet's own forced re-seed from re-triggering itself.
package entity
