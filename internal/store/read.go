package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// LoadDocument returns the document with the given id.
// Returns ErrNotFound if it does not exist.
func (s *Store) LoadDocument(ctx context.Context, id string) (DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, doc_type, name, img, data, owner, revision, hash
		FROM documents
		WHERE id = ?
	`, id)

	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentRecord{}, fmt.Errorf("load document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("load document %s: %w", id, err)
	}
	return rec, nil
}

// ListDocuments returns all documents ordered by id.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_type, name, img, data, owner, revision, hash
		FROM documents
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentRecord{}
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row rowScanner) (DocumentRecord, error) {
	var (
		rec      DocumentRecord
		dataJSON string
		owner    int
	)
	if err := row.Scan(&rec.ID, &rec.DocType, &rec.Name, &rec.Img, &dataJSON, &owner, &rec.Revision, &rec.Hash); err != nil {
		return DocumentRecord{}, err
	}
	data, err := unmarshalData(dataJSON)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("document %s: %w", rec.ID, err)
	}
	rec.Data = data
	rec.Owner = owner != 0
	return rec, nil
}

// ReadCommits returns the commit log of one document.
// Ordered by seq ASC, id ASC COLLATE BINARY. Returns an empty slice (not nil)
// if no commits exist.
func (s *Store) ReadCommits(ctx context.Context, documentID string) ([]CommitEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, seq, accepted, reason, hash, payload
		FROM commits
		WHERE document_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	entries := []CommitEntry{}
	for rows.Next() {
		var (
			e        CommitEntry
			accepted int
			payload  string
		)
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Seq, &accepted, &e.Reason, &e.Hash, &payload); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		e.Accepted = accepted != 0
		snap, err := unmarshalSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", e.ID, err)
		}
		e.Snapshot = snap
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return entries, nil
}

// MaxSeq returns the highest seq recorded for a document, counting both the
// stored revision and rejected attempts. Returns 0 for unknown documents.
func (s *Store) MaxSeq(ctx context.Context, documentID string) (int64, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT revision AS seq FROM documents WHERE id = ?
			UNION ALL
			SELECT seq FROM commits WHERE document_id = ?
		)
	`, documentID, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max seq %s: %w", documentID, err)
	}
	if !n.Valid {
		return 0, nil
	}
	return n.Int64, nil
}
