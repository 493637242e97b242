package store

import (
	"context"
	"testing"

	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
)

func TestSaveDocument_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("actor-1", "Hero")
	if err := s.SaveDocument(ctx, rec); err != nil {
		t.Fatalf("SaveDocument() failed: %v", err)
	}

	var name, dataJSON, hash string
	var owner int
	err := s.db.QueryRow(`SELECT name, data, owner, hash FROM documents WHERE id = ?`, rec.ID).
		Scan(&name, &dataJSON, &owner, &hash)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if name != "Hero" {
		t.Errorf("name = %q, want %q", name, "Hero")
	}
	if dataJSON != `{"hp":10}` {
		t.Errorf("data = %s, want canonical {\"hp\":10}", dataJSON)
	}
	if owner != 1 {
		t.Errorf("owner = %d, want 1", owner)
	}

	want, err := ir.SnapshotHash(rec.Name, rec.Img, rec.Data)
	if err != nil {
		t.Fatalf("SnapshotHash() failed: %v", err)
	}
	if hash != want {
		t.Errorf("hash = %q, want %q", hash, want)
	}
}

func TestSaveDocument_IgnoresCallerHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("actor-1", "Hero")
	rec.Hash = "bogus"
	if err := s.SaveDocument(ctx, rec); err != nil {
		t.Fatalf("SaveDocument() failed: %v", err)
	}

	got, err := s.LoadDocument(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LoadDocument() failed: %v", err)
	}
	if got.Hash == "bogus" {
		t.Error("stored hash was taken from the caller")
	}
}

func TestSaveDocument_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("actor-1", "Hero")
	if err := s.SaveDocument(ctx, rec); err != nil {
		t.Fatalf("first SaveDocument() failed: %v", err)
	}
	rec.Name = "Villain"
	rec.Revision = 4
	if err := s.SaveDocument(ctx, rec); err != nil {
		t.Fatalf("second SaveDocument() failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("documents = %d, want 1", count)
	}

	got, err := s.LoadDocument(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LoadDocument() failed: %v", err)
	}
	if got.Name != "Villain" || got.Revision != 4 {
		t.Errorf("got name=%q revision=%d, want Villain/4", got.Name, got.Revision)
	}
}

func TestSaveDocument_RequiresID(t *testing.T) {
	s := createTestStore(t)
	if err := s.SaveDocument(context.Background(), DocumentRecord{Name: "x"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestSaveDocument_RejectsNullData(t *testing.T) {
	s := createTestStore(t)
	rec := testRecord("actor-1", "Hero")
	rec.Data = ir.IRObject{"bad": ir.IRNull{}}
	if err := s.SaveDocument(context.Background(), rec); err == nil {
		t.Error("expected error for null payload value")
	}
}

func TestAppendCommit_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := entity.CommitRecord{
		DocumentID: "actor-1",
		DocType:    "Actor",
		Seq:        1,
		Accepted:   false,
		Reason:     entity.ReasonPermission,
		Snapshot:   entity.Snapshot{Name: "Hero", Data: ir.IRObject{}},
		Hash:       "h1",
	}
	for i := 0; i < 3; i++ {
		if err := s.AppendCommit(ctx, rec); err != nil {
			t.Fatalf("AppendCommit() iteration %d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("commits = %d, want 1", count)
	}

	var id string
	if err := s.db.QueryRow(`SELECT id FROM commits`).Scan(&id); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if want := ir.CommitID("actor-1", 1, "h1"); id != want {
		t.Errorf("id = %q, want %q", id, want)
	}
}

func TestCommitAccepted_WritesDocumentAndLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snap := entity.Snapshot{Name: "Renamed", Img: "a.png", Data: ir.IRObject{"hp": ir.IRInt(3)}}
	hash, err := snap.Hash()
	if err != nil {
		t.Fatalf("Hash() failed: %v", err)
	}
	rec := entity.CommitRecord{
		DocumentID: "actor-1",
		DocType:    "Actor",
		Seq:        2,
		Accepted:   true,
		Owner:      true,
		Snapshot:   snap,
		Hash:       hash,
	}
	if err := s.CommitAccepted(ctx, rec); err != nil {
		t.Fatalf("CommitAccepted() failed: %v", err)
	}

	doc, err := s.LoadDocument(ctx, "actor-1")
	if err != nil {
		t.Fatalf("LoadDocument() failed: %v", err)
	}
	if doc.Name != "Renamed" || doc.Revision != 2 || doc.Hash != hash {
		t.Errorf("document = %+v, want name Renamed at revision 2", doc)
	}

	commits, err := s.ReadCommits(ctx, "actor-1")
	if err != nil {
		t.Fatalf("ReadCommits() failed: %v", err)
	}
	if len(commits) != 1 || !commits[0].Accepted {
		t.Fatalf("commits = %+v, want one accepted entry", commits)
	}
}

func TestCommitAccepted_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := entity.CommitRecord{
		DocumentID: "actor-1",
		Seq:        1,
		Accepted:   true,
		Snapshot:   entity.Snapshot{Name: "Hero", Data: ir.IRObject{"bad": ir.IRNull{}}},
	}
	if err := s.CommitAccepted(ctx, rec); err == nil {
		t.Fatal("expected error for null payload value")
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("commits = %d after failed transaction, want 0", count)
	}
}
