package entity

import (
	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/ir"
)

// Entity is a host-owned document as seen by a sheet.
type Entity[D any] interface {
	bridge.Committer[D]

	// ID is the stable identity used for registry keying.
	ID() string

	// ReadSnapshot returns the UI projection of the current data.
	ReadSnapshot() D

	// IsOwner reports whether the current user owns the entity.
	IsOwner() bool
}

// Snapshot is the UI-relevant projection of an actor document.
// Immutable by convention: Data is a private copy per snapshot.
type Snapshot struct {
	Name string      `json:"name" yaml:"name"`
	Img  string      `json:"img,omitempty" yaml:"img,omitempty"`
	Data ir.IRObject `json:"data" yaml:"data"`
}

// Clone returns a snapshot with its own copy of Data.
func (s Snapshot) Clone() Snapshot {
	s.Data = s.Data.Clone()
	return s
}

// Hash returns the content hash of the snapshot.
func (s Snapshot) Hash() (string, error) {
	return ir.SnapshotHash(s.Name, s.Img, s.Data)
}

// SheetData is the projection a sheet re-runs on every render.
// It reads the entity and never mutates it.
func SheetData(e Entity[Snapshot]) Snapshot {
	return e.ReadSnapshot()
}
