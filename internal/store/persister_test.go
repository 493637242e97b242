package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
)

func TestCreateDocument_PersistsCommits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	doc, err := CreateDocument(ctx, s, testRecord("actor-1", "Hero"))
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}

	next := doc.ReadSnapshot()
	next.Name = "Renamed"
	if !doc.CommitUpdate(ctx, next) {
		t.Fatalf("CommitUpdate() rejected: %v", doc.LastRejection())
	}

	rec, err := s.LoadDocument(ctx, "actor-1")
	if err != nil {
		t.Fatalf("LoadDocument() failed: %v", err)
	}
	if rec.Name != "Renamed" {
		t.Errorf("stored name = %q, want Renamed", rec.Name)
	}
	if rec.Revision != doc.Revision() {
		t.Errorf("stored revision = %d, document revision = %d", rec.Revision, doc.Revision())
	}
	if rec.Hash != doc.Hash() {
		t.Errorf("stored hash = %q, document hash = %q", rec.Hash, doc.Hash())
	}
}

func TestCreateDocument_ExistingRowWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stored := testRecord("actor-1", "Stored")
	stored.Revision = 3
	if err := s.SaveDocument(ctx, stored); err != nil {
		t.Fatalf("SaveDocument() failed: %v", err)
	}

	doc, err := CreateDocument(ctx, s, testRecord("actor-1", "Fresh"))
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}
	if got := doc.ReadSnapshot().Name; got != "Stored" {
		t.Errorf("name = %q, want Stored", got)
	}
	if doc.Revision() != 3 {
		t.Errorf("revision = %d, want 3", doc.Revision())
	}
}

func TestCreateDocument_RecordsRejections(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("actor-1", "Hero")
	rec.Owner = false
	doc, err := CreateDocument(ctx, s, rec)
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}

	next := doc.ReadSnapshot()
	next.Name = "Nope"
	if doc.CommitUpdate(ctx, next) {
		t.Fatal("CommitUpdate() accepted an update from a non-owner")
	}

	commits, err := s.ReadCommits(ctx, "actor-1")
	if err != nil {
		t.Fatalf("ReadCommits() failed: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(commits))
	}
	if commits[0].Accepted || commits[0].Reason != string(entity.ReasonPermission) {
		t.Errorf("commit = %+v, want permission rejection", commits[0])
	}
	if commits[0].Snapshot.Name != "Nope" {
		t.Errorf("payload name = %q, want Nope", commits[0].Snapshot.Name)
	}

	stored, err := s.LoadDocument(ctx, "actor-1")
	if err != nil {
		t.Fatalf("LoadDocument() failed: %v", err)
	}
	if stored.Name != "Hero" {
		t.Errorf("stored name = %q, rejected update leaked", stored.Name)
	}
}

func TestOpenDocument_ResumesClockAfterRejections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheets.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	doc, err := CreateDocument(ctx, s, testRecord("actor-1", "Hero"),
		entity.WithValidator(entity.MustSchemaValidator(entity.DefaultActorSchema)))
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}
	bad := doc.ReadSnapshot()
	bad.Name = ""
	if doc.CommitUpdate(ctx, bad) {
		t.Fatal("CommitUpdate() accepted an empty name")
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	doc, err = OpenDocument(ctx, s, "actor-1")
	if err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}
	next := doc.ReadSnapshot()
	next.Data = ir.IRObject{"hp": ir.IRInt(11)}
	if !doc.CommitUpdate(ctx, next) {
		t.Fatalf("CommitUpdate() rejected: %v", doc.LastRejection())
	}

	commits, err := s.ReadCommits(ctx, "actor-1")
	if err != nil {
		t.Fatalf("ReadCommits() failed: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("len(commits) = %d, want 2", len(commits))
	}
	if commits[0].Seq >= commits[1].Seq {
		t.Errorf("seqs = %d, %d, want strictly increasing", commits[0].Seq, commits[1].Seq)
	}
	if !commits[1].Accepted {
		t.Errorf("second commit = %+v, want accepted", commits[1])
	}
}

func TestOpenDocument_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := OpenDocument(context.Background(), s, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
