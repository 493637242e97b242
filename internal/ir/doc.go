// Package ir provides the value model for entity data payloads.
//
// Snapshot payloads cross three boundaries: the UI store, the host entity,
// and the SQLite document log. All three share these types so that a payload
// read back from disk is structurally identical to the one committed.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Object keys iterate in RFC 8785 order via SortedKeys
//   - Canonical JSON (MarshalCanonical) is the only encoding used for hashing
//     and persistence
package ir
