package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sheetbridge/internal/ir"
)

// createTestStore opens a fresh database under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRecord returns an owned actor record at revision 0.
func testRecord(id, name string) DocumentRecord {
	return DocumentRecord{
		ID:      id,
		DocType: "Actor",
		Name:    name,
		Img:     "icons/" + id + ".png",
		Data:    ir.IRObject{"hp": ir.IRInt(10)},
		Owner:   true,
	}
}
