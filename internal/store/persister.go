package store

import (
	"context"
	"fmt"

	"github.com/roach88/sheetbridge/internal/entity"
)

// DocumentPersister adapts a Store to entity.Persister.
type DocumentPersister struct {
	store *Store
}

// NewDocumentPersister wraps s.
func NewDocumentPersister(s *Store) *DocumentPersister {
	return &DocumentPersister{store: s}
}

// Persist implements entity.Persister.
func (p *DocumentPersister) Persist(ctx context.Context, rec entity.CommitRecord) error {
	return p.store.CommitAccepted(ctx, rec)
}

// RecordRejection implements entity.Persister.
func (p *DocumentPersister) RecordRejection(ctx context.Context, rec entity.CommitRecord) error {
	return p.store.AppendCommit(ctx, rec)
}

// CreateDocument saves rec (if it does not exist yet) and returns a live
// document bound to the store. An existing row wins over rec, so reopening
// a database resumes where it left off.
func CreateDocument(ctx context.Context, s *Store, rec DocumentRecord, opts ...entity.DocumentOption) (*entity.Document, error) {
	existing, err := s.LoadDocument(ctx, rec.ID)
	switch {
	case err == nil:
		rec = existing
	case isNotFound(err):
		if err := s.SaveDocument(ctx, rec); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return bind(ctx, s, rec, opts...)
}

// OpenDocument loads an existing document and binds it to the store.
func OpenDocument(ctx context.Context, s *Store, id string, opts ...entity.DocumentOption) (*entity.Document, error) {
	rec, err := s.LoadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return bind(ctx, s, rec, opts...)
}

// bind resumes the revision clock after the highest recorded seq so new
// attempts never reuse a logged seq.
func bind(ctx context.Context, s *Store, rec DocumentRecord, opts ...entity.DocumentOption) (*entity.Document, error) {
	maxSeq, err := s.MaxSeq(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	base := []entity.DocumentOption{
		entity.WithOwner(rec.Owner),
		entity.WithRevision(rec.Revision),
		entity.WithClock(entity.NewClockAt(maxSeq)),
		entity.WithPersister(NewDocumentPersister(s)),
	}
	doc, err := entity.NewDocument(rec.ID, rec.DocType, rec.Snapshot(), append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("bind document %s: %w", rec.ID, err)
	}
	return doc, nil
}
