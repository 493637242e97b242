package sheet

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/registry"
)

// Controller binds one host window, one entity, one store and one view.
//
// Thread-safety: Controller is safe for concurrent use. Host callbacks,
// store sets and registry calls run without the controller lock held, so a
// view or window may call Render or Close from inside them.
type Controller[D any] struct {
	window   HostWindow
	entity   entity.Entity[D]
	project  func(entity.Entity[D]) D
	mount    MountFunc[D]
	registry *registry.Registry
	opts     []bridge.Option
	observer Observer

	mu       sync.Mutex
	state    State
	store    *bridge.Store[D]
	view     View
	editable bool
	pending  bool  // a render overlapped the mount in flight
	gen      int64 // bumped by Close to abandon an in-flight mount
}

// New creates an unmounted controller.
func New[D any](cfg Config[D]) (*Controller[D], error) {
	switch {
	case cfg.Window == nil:
		return nil, errors.New("sheet: window is required")
	case cfg.Entity == nil:
		return nil, errors.New("sheet: entity is required")
	case cfg.Mount == nil:
		return nil, errors.New("sheet: mount func is required")
	}

	c := &Controller[D]{
		window:   cfg.Window,
		entity:   cfg.Entity,
		project:  cfg.Project,
		mount:    cfg.Mount,
		registry: cfg.Registry,
		opts:     cfg.StoreOptions,
		observer: cfg.Observer,
	}
	if c.project == nil {
		c.project = func(e entity.Entity[D]) D { return e.ReadSnapshot() }
	}
	if c.registry == nil {
		c.registry = registry.Default
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c, nil
}

// AppID returns the window's app id.
func (c *Controller[D]) AppID() string { return c.window.AppID() }

// EntityID returns the id of the entity shown by the sheet.
func (c *Controller[D]) EntityID() string { return c.entity.ID() }

// State returns the current mount state.
func (c *Controller[D]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Editable reports whether the sheet was last rendered as editable.
func (c *Controller[D]) Editable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editable
}

// Store returns the live store, or nil when not mounted.
func (c *Controller[D]) Store() *bridge.Store[D] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// Snapshot projects the entity's current data. It does not mutate the entity.
func (c *Controller[D]) Snapshot() D {
	return c.project(c.entity)
}

// Refresh implements registry.Renderer.
func (c *Controller[D]) Refresh(ctx context.Context) {
	c.Render(ctx, RenderOptions{})
}

// Render shows the entity's latest data and returns the controller.
//
// The first render prepares the window, seeds a new store from a fresh
// snapshot and mounts the view on it. Later renders push a fresh snapshot
// into the existing store with a forced set. Every render recomputes the
// editable flag and registers the controller for its entity.
func (c *Controller[D]) Render(ctx context.Context, opts RenderOptions) *Controller[D] {
	editable := c.entity.IsOwner()
	if opts.Editable != nil {
		editable = *opts.Editable
	}

	c.mu.Lock()
	c.editable = editable
	var (
		branch Branch
		store  *bridge.Store[D]
		gen    int64
	)
	switch c.state {
	case Unmounted:
		branch = BranchMount
		c.state = Mounting
		c.pending = false
		gen = c.gen
	case Mounting:
		branch = BranchCoalesced
		c.pending = true
	case Mounted:
		branch = BranchRefresh
		store = c.store
	case Errored:
		branch = BranchErrored
	}
	c.mu.Unlock()

	c.observer.Rendered(branch)

	switch branch {
	case BranchMount:
		if !c.mountView(ctx, gen) {
			return c
		}
	case BranchRefresh:
		c.push(ctx, store)
	}

	c.register()
	return c
}

// mountView runs the first render. Returns false if Close abandoned it.
func (c *Controller[D]) mountView(ctx context.Context, gen int64) bool {
	if err := c.window.Prepare(ctx); err != nil {
		return c.fail(gen, err)
	}

	store := bridge.New[D](c.Snapshot(), c.entity, c.opts...)
	view, err := c.mount(store)
	if err != nil {
		store.Destroy()
		return c.fail(gen, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		slog.Debug("sheet mount abandoned", "app", c.AppID(), "entity", c.EntityID())
		view.Destroy()
		store.Destroy()
		return false
	}
	c.store = store
	c.view = view
	c.state = Mounted
	pending := c.pending
	c.pending = false
	c.mu.Unlock()

	c.observer.Mounted()
	slog.Debug("sheet mounted", "app", c.AppID(), "entity", c.EntityID())

	if pending {
		c.push(ctx, store)
	}
	return true
}

// fail moves an in-flight mount to Errored. Returns false if Close
// abandoned the mount first.
func (c *Controller[D]) fail(gen int64, cause error) bool {
	rerr := &RenderError{AppID: c.AppID(), EntityID: c.EntityID(), Err: cause}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		slog.Debug("abandoned sheet mount failed", "error", rerr)
		return false
	}
	c.state = Errored
	c.pending = false
	c.mu.Unlock()

	slog.Error("sheet render failed",
		"app", rerr.AppID,
		"entity", rerr.EntityID,
		"error", cause,
	)
	c.window.ShowError(rerr)
	c.observer.RenderFailed()
	return true
}

// push re-seeds store with a fresh snapshot.
func (c *Controller[D]) push(ctx context.Context, store *bridge.Store[D]) {
	if err := store.Set(ctx, c.Snapshot(), true); err != nil {
		// Close raced the refresh and destroyed the store.
		slog.Debug("sheet refresh dropped", "app", c.AppID(), "error", err)
	}
}

// register records the controller for its entity unless a Close ran since
// the render began.
func (c *Controller[D]) register() {
	c.mu.Lock()
	open := c.state != Unmounted
	c.mu.Unlock()
	if open {
		c.registry.Register(c.EntityID(), c)
	}
}

// Close tears down the view and store, deregisters the controller, and then
// closes the host window. A mount still in flight is abandoned; it destroys
// whatever it built. Closing an unmounted controller only closes the window.
func (c *Controller[D]) Close(ctx context.Context) error {
	c.mu.Lock()
	prev := c.state
	view, store := c.view, c.store
	c.view, c.store = nil, nil
	c.state = Unmounted
	c.pending = false
	c.gen++
	c.mu.Unlock()

	if prev != Unmounted {
		c.registry.Deregister(c.EntityID(), c.AppID())
	}
	if view != nil {
		view.Destroy()
	}
	if store != nil {
		store.Destroy()
	}
	if prev == Mounted {
		c.observer.Unmounted()
		slog.Debug("sheet unmounted", "app", c.AppID(), "entity", c.EntityID())
	}

	return c.window.Close(ctx)
}
