package sheet

import (
	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/registry"
)

// RenderOptions are the per-call render options.
type RenderOptions struct {
	// Force mirrors the host's render(force) argument and has no effect:
	// every render of a mounted sheet re-seeds its store with a forced set,
	// and a first render always mounts.
	Force bool

	// Editable overrides the editable flag. Nil means the entity's owner flag.
	Editable *bool
}

// Editable returns a RenderOptions.Editable value.
func Editable(v bool) *bool { return &v }

// Observer receives controller activity. Implementations must not call back
// into the controller.
type Observer interface {
	Rendered(branch Branch)
	RenderFailed()
	Mounted()
	Unmounted()
}

type nopObserver struct{}

func (nopObserver) Rendered(Branch) {}
func (nopObserver) RenderFailed()   {}
func (nopObserver) Mounted()        {}
func (nopObserver) Unmounted()      {}

// Config wires a controller.
type Config[D any] struct {
	Window HostWindow       // required
	Entity entity.Entity[D] // required
	Mount  MountFunc[D]     // required

	// Project computes the sheet snapshot. Default: Entity.ReadSnapshot.
	Project func(entity.Entity[D]) D

	// Registry receives the controller on every render.
	// Default: registry.Default.
	Registry *registry.Registry

	// StoreOptions are passed to every store the controller creates.
	StoreOptions []bridge.Option

	Observer Observer
}
