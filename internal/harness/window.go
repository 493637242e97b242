package harness

import (
	"context"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/sheet"
	"github.com/roach88/sheetbridge/internal/testutil"
)

// window is one labelled sheet window in a run.
type window struct {
	label  string
	fake   *testutil.FakeWindow
	ctrl   *sheet.Controller[entity.Snapshot]
	stores int
	last   *bridge.Store[entity.Snapshot]
}

// window returns the window for label, opening it on first use.
func (r *runner) window(label string) *window {
	if w, ok := r.windows[label]; ok {
		return w
	}

	w := &window{label: label, fake: testutil.NewFakeWindow(r.ids.Generate())}
	var storeOpts []bridge.Option
	storeOpts = append(storeOpts, bridge.WithNotifyPolicy(r.policy))
	if r.opts.BridgeObserver != nil {
		storeOpts = append(storeOpts, bridge.WithObserver(r.opts.BridgeObserver))
	}
	observers := sheetObservers{&windowObserver{r: r, label: label}}
	if r.opts.SheetObserver != nil {
		observers = append(observers, r.opts.SheetObserver)
	}

	ctrl, err := sheet.New(sheet.Config[entity.Snapshot]{
		Window:       w.fake,
		Entity:       r.entity,
		Mount:        r.mountFunc(w),
		Project:      entity.SheetData,
		Registry:     r.registry,
		StoreOptions: storeOpts,
		Observer:     observers,
	})
	if err != nil {
		// Config is built from non-nil values above.
		panic(err)
	}
	w.ctrl = ctrl
	r.windows[label] = w
	return w
}

// mountFunc mounts a view that subscribes to the store as "view:<label>".
func (r *runner) mountFunc(w *window) sheet.MountFunc[entity.Snapshot] {
	return func(s *bridge.Store[entity.Snapshot]) (sheet.View, error) {
		w.stores++
		w.last = s
		view := &tracedSubscriber{name: "view:" + w.label, r: r}
		unsub, err := s.Subscribe(view)
		if err != nil {
			return nil, err
		}
		return sheet.ViewFunc(unsub), nil
	}
}

// tally counts the notifications one subscriber name received.
type tally struct {
	count int
	last  entity.Snapshot
}

// tracedSubscriber records every notification in the trace.
type tracedSubscriber struct {
	name string
	r    *runner
}

// Notify implements bridge.Subscriber.
func (s *tracedSubscriber) Notify(v entity.Snapshot) {
	t, ok := s.r.tallies[s.name]
	if !ok {
		t = &tally{}
		s.r.tallies[s.name] = t
	}
	t.count++
	t.last = v
	s.r.result.record(TraceEvent{Type: EventNotify, Subscriber: s.name, Name: v.Name})
}

// tracedEntity records every commit outcome in the trace.
type tracedEntity struct {
	*entity.Document
	r *runner
}

// CommitUpdate implements bridge.Committer.
func (e *tracedEntity) CommitUpdate(ctx context.Context, v entity.Snapshot) bool {
	ok := e.Document.CommitUpdate(ctx, v)
	ev := TraceEvent{
		Type:     EventCommit,
		Name:     v.Name,
		Accepted: boolPtr(ok),
		Revision: int64Ptr(e.Document.Revision()),
	}
	if !ok {
		if rej := e.Document.LastRejection(); rej != nil {
			ev.Reason = string(rej.Reason)
		}
	}
	e.r.result.record(ev)
	return ok
}

// windowObserver records controller lifecycle events.
type windowObserver struct {
	r     *runner
	label string
}

func (o *windowObserver) Rendered(b sheet.Branch) {
	o.r.result.record(TraceEvent{Type: EventRender, Window: o.label, Branch: string(b)})
}

func (o *windowObserver) RenderFailed() {
	w := o.r.windows[o.label]
	msg := ""
	if w != nil {
		if errs := w.fake.Errors(); len(errs) > 0 {
			msg = errs[len(errs)-1].Error()
		}
	}
	o.r.result.record(TraceEvent{Type: EventRenderError, Window: o.label, Message: msg})
}

func (o *windowObserver) Mounted() {
	o.r.result.record(TraceEvent{Type: EventMount, Window: o.label})
}

func (o *windowObserver) Unmounted() {
	o.r.result.record(TraceEvent{Type: EventUnmount, Window: o.label})
}

// sheetObservers fans controller events out to several observers.
type sheetObservers []sheet.Observer

func (s sheetObservers) Rendered(b sheet.Branch) {
	for _, o := range s {
		o.Rendered(b)
	}
}

func (s sheetObservers) RenderFailed() {
	for _, o := range s {
		o.RenderFailed()
	}
}

func (s sheetObservers) Mounted() {
	for _, o := range s {
		o.Mounted()
	}
}

func (s sheetObservers) Unmounted() {
	for _, o := range s {
		o.Unmounted()
	}
}
