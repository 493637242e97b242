package testutil

import (
	"context"
	"sync"

	"github.com/roach88/sheetbridge/internal/entity"
)

// RecordingEntity is a scripted entity. Commits succeed unless a result was
// queued with QueueResults; accepted values become the new snapshot.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingEntity[D any] struct {
	id string

	mu      sync.Mutex
	snap    D
	owner   bool
	results []bool
	commits []D
}

var _ entity.Entity[entity.Snapshot] = (*RecordingEntity[entity.Snapshot])(nil)

// NewRecordingEntity creates an owned entity with the given snapshot.
func NewRecordingEntity[D any](id string, snap D) *RecordingEntity[D] {
	return &RecordingEntity[D]{id: id, snap: snap, owner: true}
}

// ID implements entity.Entity.
func (e *RecordingEntity[D]) ID() string { return e.id }

// CommitUpdate records value and returns the next queued result.
func (e *RecordingEntity[D]) CommitUpdate(_ context.Context, value D) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commits = append(e.commits, value)
	ok := true
	if len(e.results) > 0 {
		ok = e.results[0]
		e.results = e.results[1:]
	}
	if ok {
		e.snap = value
	}
	return ok
}

// ReadSnapshot implements entity.Entity.
func (e *RecordingEntity[D]) ReadSnapshot() D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// IsOwner implements entity.Entity.
func (e *RecordingEntity[D]) IsOwner() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// SetOwner changes the owner flag.
func (e *RecordingEntity[D]) SetOwner(owner bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owner = owner
}

// SetSnapshot replaces the data directly, as an external edit would.
func (e *RecordingEntity[D]) SetSnapshot(snap D) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = snap
}

// QueueResults scripts the outcomes of the next commits.
func (e *RecordingEntity[D]) QueueResults(results ...bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, results...)
}

// Commits returns every value passed to CommitUpdate, in call order.
func (e *RecordingEntity[D]) Commits() []D {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]D, len(e.commits))
	copy(out, e.commits)
	return out
}
