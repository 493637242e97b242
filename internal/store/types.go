package store

import (
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
)

// DocumentRecord is one row of the documents table.
type DocumentRecord struct {
	ID       string      `json:"id"`
	DocType  string      `json:"doc_type"`
	Name     string      `json:"name"`
	Img      string      `json:"img,omitempty"`
	Data     ir.IRObject `json:"data"`
	Owner    bool        `json:"owner"`
	Revision int64       `json:"revision"`
	Hash     string      `json:"hash"`
}

// Snapshot returns the UI projection of the record.
func (r DocumentRecord) Snapshot() entity.Snapshot {
	return entity.Snapshot{Name: r.Name, Img: r.Img, Data: r.Data.Clone()}
}

// CommitEntry is one row of the commit log.
type CommitEntry struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Seq        int64           `json:"seq"`
	Accepted   bool            `json:"accepted"`
	Reason     string          `json:"reason,omitempty"`
	Hash       string          `json:"hash,omitempty"`
	Snapshot   entity.Snapshot `json:"snapshot"`
}
