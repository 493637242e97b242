package testutil

import (
	"sync"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/sheet"
)

// RecordingView is a mounted view that subscribes to its store and records
// every value it receives, starting with the initial subscribe call.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingView[D any] struct {
	mu        sync.Mutex
	store     *bridge.Store[D]
	unsub     bridge.Unsubscriber
	values    []D
	destroyed bool
}

// Notify implements bridge.Subscriber.
func (v *RecordingView[D]) Notify(value D) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values = append(v.values, value)
}

// Destroy implements sheet.View. It unsubscribes from the store.
func (v *RecordingView[D]) Destroy() {
	v.mu.Lock()
	unsub := v.unsub
	v.destroyed = true
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Store returns the store the view was mounted with.
func (v *RecordingView[D]) Store() *bridge.Store[D] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store
}

// Values returns every notified value in order.
func (v *RecordingView[D]) Values() []D {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]D, len(v.values))
	copy(out, v.values)
	return out
}

// Count returns how many notifications the view received.
func (v *RecordingView[D]) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.values)
}

// Last returns the most recent value, or the zero value if none.
func (v *RecordingView[D]) Last() D {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero D
	if len(v.values) == 0 {
		return zero
	}
	return v.values[len(v.values)-1]
}

// Destroyed reports whether Destroy ran.
func (v *RecordingView[D]) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// Mounter builds RecordingViews and remembers each one.
//
// Thread-safety: all methods are safe for concurrent use.
type Mounter[D any] struct {
	mu    sync.Mutex
	views []*RecordingView[D]
	err   error
}

// Fail makes every later Mount return err without subscribing. Nil clears it.
func (m *Mounter[D]) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Mount is a sheet.MountFunc.
func (m *Mounter[D]) Mount(store *bridge.Store[D]) (sheet.View, error) {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	v := &RecordingView[D]{store: store}
	unsub, err := store.Subscribe(v)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.unsub = unsub
	v.mu.Unlock()

	m.mu.Lock()
	m.views = append(m.views, v)
	m.mu.Unlock()
	return v, nil
}

// Views returns all mounted views in mount order.
func (m *Mounter[D]) Views() []*RecordingView[D] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*RecordingView[D], len(m.views))
	copy(out, m.views)
	return out
}

// Latest returns the most recently mounted view, or nil.
func (m *Mounter[D]) Latest() *RecordingView[D] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.views) == 0 {
		return nil
	}
	return m.views[len(m.views)-1]
}
