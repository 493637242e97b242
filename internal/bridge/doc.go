// Package bridge implements the bridging store: a reactive value container
// tied 1:1 to one host entity for the lifetime of one UI attachment.
//
// The store holds the UI-visible snapshot of entity data. Writes go through
// the entity's own commit path on every call; the store never overwrites the
// entity directly. Confirmed values fan out to a dynamic set of subscribers.
//
// # Notification
//
// Set always attempts the commit. Whether subscribers are notified is decided
// by the store's NotifyPolicy:
//
//	policy            commit ok  commit failed
//	NotifyForcedOnly  force      force
//	NotifyOnCommit    always     force
//
// NotifyForcedOnly is the default. Under it a non-forced Set never changes
// the current value, even when the commit succeeded; callers that want the
// UI to observe a committed edit re-seed the store with a forced Set (which
// is what the sheet controller does on every render).
//
// # Ordering
//
// Within one Set, subscribers are called synchronously in registration order
// before Set returns. A Set issued while a fan-out is in flight (from a
// subscriber, or from another goroutine) commits immediately but its
// notification is queued and delivered by the in-flight caller once the
// current fan-out completes. No subscriber ever observes an older value
// after a newer one.
//
// "Newer" means started later: every Set takes a ticket before committing.
// If a Set's commit returns after a later Set has already queued its value
// (a slow commit racing another goroutine, or a refresh that re-seeds the
// store from inside the commit), the older value is dropped and counted as
// skipped.
//
// # Lifecycle
//
// Destroy unsubscribes every handler. Afterwards Set, Update and Subscribe
// fail with ErrDestroyed; unsubscribers remain safe to call.
package bridge
