package testutil

import (
	"context"
	"sync"

	"github.com/roach88/sheetbridge/internal/sheet"
)

var _ sheet.HostWindow = (*FakeWindow)(nil)

// FakeWindow is a host window that counts lifecycle calls.
//
// Thread-safety: all methods are safe for concurrent use. Hooks run without
// the window's lock held.
type FakeWindow struct {
	id string

	mu          sync.Mutex
	prepareErr  error
	prepareHook func(ctx context.Context)
	prepares    int
	closes      int
	shown       []error
}

// NewFakeWindow creates a window with the given app id.
func NewFakeWindow(id string) *FakeWindow {
	return &FakeWindow{id: id}
}

// AppID implements sheet.HostWindow.
func (w *FakeWindow) AppID() string { return w.id }

// Prepare implements sheet.HostWindow. It runs the prepare hook, then
// returns the error set by FailPrepare, if any.
func (w *FakeWindow) Prepare(ctx context.Context) error {
	w.mu.Lock()
	w.prepares++
	hook := w.prepareHook
	err := w.prepareErr
	w.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return err
}

// ShowError implements sheet.HostWindow.
func (w *FakeWindow) ShowError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shown = append(w.shown, err)
}

// Close implements sheet.HostWindow.
func (w *FakeWindow) Close(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

// FailPrepare makes every later Prepare return err. Nil clears it.
func (w *FakeWindow) FailPrepare(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prepareErr = err
}

// OnPrepare installs a hook that runs inside Prepare. Tests use it to
// overlap a second render with the first one's preparation.
func (w *FakeWindow) OnPrepare(hook func(ctx context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prepareHook = hook
}

// Prepares returns how many times Prepare ran.
func (w *FakeWindow) Prepares() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prepares
}

// Closes returns how many times Close ran.
func (w *FakeWindow) Closes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closes
}

// Errors returns the errors passed to ShowError.
func (w *FakeWindow) Errors() []error {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]error, len(w.shown))
	copy(out, w.shown)
	return out
}
