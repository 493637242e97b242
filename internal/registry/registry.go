package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Renderer is an open UI attached to an entity.
type Renderer interface {
	// AppID identifies the window. It is stable for the window's lifetime.
	AppID() string

	// Refresh re-renders the window from the entity's current state.
	Refresh(ctx context.Context)
}

// Default is the process-wide registry.
var Default = New()

// Registry maps entity id → app id → renderer.
//
// Thread-safety: Registry is safe for concurrent use. RefreshEntity calls
// renderers without holding the lock, so a renderer may register or
// deregister itself while being refreshed.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]map[string]Renderer
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]map[string]Renderer)}
}

// Register records r as rendering entityID.
// Registering the same app id again replaces the previous renderer.
func (r *Registry) Register(entityID string, rd Renderer) {
	appID := rd.AppID()

	r.mu.Lock()
	defer r.mu.Unlock()

	apps, ok := r.entries[entityID]
	if !ok {
		apps = make(map[string]Renderer)
		r.entries[entityID] = apps
	}
	if _, exists := apps[appID]; !exists {
		slog.Debug("renderer registered", "entity", entityID, "app", appID)
	}
	apps[appID] = rd
}

// Deregister removes the renderer with appID from entityID.
// Returns false if it was not registered.
func (r *Registry) Deregister(entityID, appID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	apps, ok := r.entries[entityID]
	if !ok {
		return false
	}
	if _, ok := apps[appID]; !ok {
		return false
	}
	delete(apps, appID)
	if len(apps) == 0 {
		delete(r.entries, entityID)
	}
	slog.Debug("renderer deregistered", "entity", entityID, "app", appID)
	return true
}

// Lookup returns the renderers of entityID sorted by app id.
// Returns nil if none are registered.
func (r *Registry) Lookup(entityID string) []Renderer {
	r.mu.RLock()
	apps := r.entries[entityID]
	out := make([]Renderer, 0, len(apps))
	for _, rd := range apps {
		out = append(out, rd)
	}
	r.mu.RUnlock()

	if len(out) == 0 {
		return nil
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppID() < out[j].AppID()
	})
	return out
}

// Has reports whether appID is registered for entityID.
func (r *Registry) Has(entityID, appID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[entityID][appID]
	return ok
}

// RefreshEntity refreshes every renderer of entityID in app id order and
// returns how many were refreshed.
func (r *Registry) RefreshEntity(ctx context.Context, entityID string) int {
	renderers := r.Lookup(entityID)
	for _, rd := range renderers {
		rd.Refresh(ctx)
	}
	return len(renderers)
}

// Len returns the number of registered renderers across all entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, apps := range r.entries {
		n += len(apps)
	}
	return n
}
