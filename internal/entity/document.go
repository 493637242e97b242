package entity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/sheetbridge/internal/ir"
)

// CommitRecord describes one commit attempt handed to a Persister.
type CommitRecord struct {
	DocumentID string
	DocType    string
	Seq        int64
	Accepted   bool
	Reason     RejectionReason
	Owner      bool
	Snapshot   Snapshot
	Hash       string
}

// Persister stores accepted documents and logs every commit attempt.
type Persister interface {
	// Persist saves an accepted commit. An error turns the commit into a
	// ReasonPersist rejection and leaves the document unchanged.
	Persist(ctx context.Context, rec CommitRecord) error

	// RecordRejection logs a refused commit. Errors are logged, not surfaced.
	RecordRejection(ctx context.Context, rec CommitRecord) error
}

// Change is delivered to listeners after content changes.
type Change struct {
	DocumentID string
	Revision   int64
	Snapshot   Snapshot
	External   bool // applied by the host rather than through CommitUpdate
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithValidator sets the commit validator.
func WithValidator(v Validator) DocumentOption {
	return func(d *Document) {
		d.validator = v
	}
}

// WithPersister sets the persistence backend.
func WithPersister(p Persister) DocumentOption {
	return func(d *Document) {
		d.persister = p
	}
}

// WithClock sets the revision clock.
// Default: a Clock resuming after the initial revision.
func WithClock(c Sequencer) DocumentOption {
	return func(d *Document) {
		d.clock = c
	}
}

// WithOwner sets the initial ownership flag. Default: true.
func WithOwner(owner bool) DocumentOption {
	return func(d *Document) {
		d.owner = owner
	}
}

// WithRevision sets the revision of a document loaded from storage.
func WithRevision(rev int64) DocumentOption {
	return func(d *Document) {
		d.revision = rev
	}
}

// Document is an in-memory host actor document.
// It implements Entity[Snapshot].
//
// Thread-safety: all methods are safe for concurrent use. Change listeners
// run on the committing goroutine after the document lock is released.
type Document struct {
	id      string
	docType string

	mu            sync.RWMutex
	snap          Snapshot
	hash          string
	owner         bool
	revision      int64
	clock         Sequencer
	validator     Validator
	persister     Persister
	lastRejection *RejectionError
	listeners     map[int]func(Change)
	nextListener  int
}

// NewDocument creates a document with the given initial content.
func NewDocument(id, docType string, initial Snapshot, opts ...DocumentOption) (*Document, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	d := &Document{
		id:        id,
		docType:   docType,
		snap:      initial.Clone(),
		owner:     true,
		listeners: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewClockAt(d.revision)
	}
	if d.snap.Data == nil {
		d.snap.Data = ir.IRObject{}
	}

	hash, err := d.snap.Hash()
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	d.hash = hash
	return d, nil
}

// ID implements Entity.
func (d *Document) ID() string { return d.id }

// Type returns the document type (e.g. "character").
func (d *Document) Type() string { return d.docType }

// IsOwner implements Entity.
func (d *Document) IsOwner() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.owner
}

// SetOwner changes the ownership flag (e.g. after a permission change).
func (d *Document) SetOwner(owner bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owner = owner
}

// Revision returns the seq of the last accepted change.
func (d *Document) Revision() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Hash returns the content hash of the current snapshot.
func (d *Document) Hash() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hash
}

// ReadSnapshot implements Entity. The returned Data is a private copy.
func (d *Document) ReadSnapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.Clone()
}

// LastRejection returns the most recent refused commit, or nil.
func (d *Document) LastRejection() *RejectionError {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRejection
}

// OnChange registers a change listener and returns its cancel function.
func (d *Document) OnChange(fn func(Change)) (cancel func()) {
	d.mu.Lock()
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// CommitUpdate implements bridge.Committer.
//
// The update is accepted when the current user owns the document, the
// validator passes, and the persister stores it. A non-owner is rejected
// even when the value equals the current content. An owner's unchanged
// value is accepted without a new revision or change event.
func (d *Document) CommitUpdate(ctx context.Context, s Snapshot) bool {
	hash, err := s.Hash()
	if err != nil {
		d.mu.Lock()
		rej := d.rejectLocked(ctx, ReasonInvalid, d.clock.Next(), s, "", err)
		d.mu.Unlock()
		d.logRejection(rej)
		return false
	}

	d.mu.Lock()
	if !d.owner {
		rej := d.rejectLocked(ctx, ReasonPermission, d.clock.Next(), s, hash, ErrNotOwner)
		d.mu.Unlock()
		d.logRejection(rej)
		return false
	}
	if hash == d.hash {
		d.mu.Unlock()
		slog.Debug("commit unchanged", "document", d.id)
		return true
	}

	seq := d.clock.Next()
	if d.validator != nil {
		if verr := d.validator.Validate(s); verr != nil {
			rej := d.rejectLocked(ctx, ReasonInvalid, seq, s, hash, verr)
			d.mu.Unlock()
			d.logRejection(rej)
			return false
		}
	}

	rec := CommitRecord{
		DocumentID: d.id,
		DocType:    d.docType,
		Seq:        seq,
		Accepted:   true,
		Owner:      d.owner,
		Snapshot:   s.Clone(),
		Hash:       hash,
	}
	if d.persister != nil {
		if perr := d.persister.Persist(ctx, rec); perr != nil {
			rej := d.rejectLocked(ctx, ReasonPersist, seq, s, hash, perr)
			d.mu.Unlock()
			d.logRejection(rej)
			return false
		}
	}

	change := d.applyLocked(rec.Snapshot, hash, seq, false)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	slog.Debug("commit accepted", "document", d.id, "seq", seq)
	notifyListeners(listeners, change)
	return true
}

// ApplyExternal replaces the document content on behalf of the host (for
// example an edit made by another client). It bypasses ownership and
// validation, is not persisted, and fires change listeners when the content
// differs.
func (d *Document) ApplyExternal(s Snapshot) error {
	hash, err := s.Hash()
	if err != nil {
		return fmt.Errorf("apply external change to %s: %w", d.id, err)
	}

	d.mu.Lock()
	if hash == d.hash {
		d.mu.Unlock()
		return nil
	}
	change := d.applyLocked(s.Clone(), hash, d.clock.Next(), true)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	slog.Debug("external change applied", "document", d.id, "seq", change.Revision)
	notifyListeners(listeners, change)
	return nil
}

func (d *Document) applyLocked(s Snapshot, hash string, seq int64, external bool) Change {
	if s.Data == nil {
		s.Data = ir.IRObject{}
	}
	d.snap = s
	d.hash = hash
	d.revision = seq
	return Change{
		DocumentID: d.id,
		Revision:   seq,
		Snapshot:   s.Clone(),
		External:   external,
	}
}

func (d *Document) listenersLocked() []func(Change) {
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids) // registration order
	out := make([]func(Change), len(ids))
	for i, id := range ids {
		out[i] = d.listeners[id]
	}
	return out
}

func notifyListeners(listeners []func(Change), c Change) {
	for _, fn := range listeners {
		fn(c)
	}
}

// rejectLocked records a rejection. Caller holds d.mu.
func (d *Document) rejectLocked(ctx context.Context, reason RejectionReason, seq int64, s Snapshot, hash string, cause error) *RejectionError {
	rej := &RejectionError{
		DocumentID: d.id,
		Reason:     reason,
		Seq:        seq,
		Err:        cause,
	}
	d.lastRejection = rej

	if d.persister != nil {
		rec := CommitRecord{
			DocumentID: d.id,
			DocType:    d.docType,
			Seq:        seq,
			Accepted:   false,
			Reason:     reason,
			Owner:      d.owner,
			Snapshot:   s.Clone(),
			Hash:       hash,
		}
		if err := d.persister.RecordRejection(ctx, rec); err != nil {
			slog.Error("failed to record rejected commit",
				"document", d.id,
				"seq", seq,
				"error", err,
			)
		}
	}
	return rej
}

func (d *Document) logRejection(rej *RejectionError) {
	slog.Warn("commit rejected",
		"document", rej.DocumentID,
		"reason", string(rej.Reason),
		"seq", rej.Seq,
		"error", rej.Err,
	)
}
