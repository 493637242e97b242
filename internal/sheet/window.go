package sheet

import (
	"context"

	"github.com/roach88/sheetbridge/internal/bridge"
)

// HostWindow is the host application window a controller drives.
type HostWindow interface {
	// AppID identifies the window. It must not change while the window is open.
	AppID() string

	// Prepare runs the host's own pre-render step (templates, layout).
	Prepare(ctx context.Context) error

	// ShowError switches the window to its error-display state.
	ShowError(err error)

	// Close releases the window's host resources.
	Close(ctx context.Context) error
}

// View is a mounted UI tree.
type View interface {
	// Destroy unmounts the tree and releases its resources.
	Destroy()
}

// MountFunc mounts a view. The store is the view's only data dependency: it
// reads through its subscription and writes through Set or Update.
type MountFunc[D any] func(store *bridge.Store[D]) (View, error)

// ViewFunc adapts a teardown function to View.
type ViewFunc func()

// Destroy calls f.
func (f ViewFunc) Destroy() { f() }
