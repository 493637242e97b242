package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
)

// SaveDocument inserts or replaces a document row.
// The hash is recomputed from content; any value on rec is ignored.
func (s *Store) SaveDocument(ctx context.Context, rec DocumentRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("save document: id is required")
	}
	return saveDocument(ctx, s.db, rec)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveDocument(ctx context.Context, db execer, rec DocumentRecord) error {
	dataJSON, err := marshalData(rec.Data)
	if err != nil {
		return fmt.Errorf("save document %s: %w", rec.ID, err)
	}
	hash, err := ir.SnapshotHash(rec.Name, rec.Img, rec.Data)
	if err != nil {
		return fmt.Errorf("save document %s: %w", rec.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (id, doc_type, name, img, data, owner, revision, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_type = excluded.doc_type,
			name     = excluded.name,
			img      = excluded.img,
			data     = excluded.data,
			owner    = excluded.owner,
			revision = excluded.revision,
			hash     = excluded.hash
	`,
		rec.ID,
		rec.DocType,
		rec.Name,
		rec.Img,
		dataJSON,
		boolToInt(rec.Owner),
		rec.Revision,
		hash,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", rec.ID, err)
	}
	return nil
}

// AppendCommit records one commit attempt.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; the id is derived from
// (document, seq, hash) so re-recording the same attempt is a no-op.
func (s *Store) AppendCommit(ctx context.Context, rec entity.CommitRecord) error {
	return appendCommit(ctx, s.db, rec)
}

func appendCommit(ctx context.Context, db execer, rec entity.CommitRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO commits (id, document_id, seq, accepted, reason, hash, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ir.CommitID(rec.DocumentID, rec.Seq, rec.Hash),
		rec.DocumentID,
		rec.Seq,
		boolToInt(rec.Accepted),
		string(rec.Reason),
		rec.Hash,
		marshalSnapshot(rec.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("append commit %s@%d: %w", rec.DocumentID, rec.Seq, err)
	}
	return nil
}

// CommitAccepted saves the new document content and logs the commit in
// one transaction.
func (s *Store) CommitAccepted(ctx context.Context, rec entity.CommitRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", rec.DocumentID, err)
	}
	defer tx.Rollback() // No-op if committed

	doc := DocumentRecord{
		ID:       rec.DocumentID,
		DocType:  rec.DocType,
		Name:     rec.Snapshot.Name,
		Img:      rec.Snapshot.Img,
		Data:     rec.Snapshot.Data,
		Owner:    rec.Owner,
		Revision: rec.Seq,
	}
	if err := saveDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := appendCommit(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", rec.DocumentID, err)
	}
	return nil
}
