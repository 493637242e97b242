package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
	"github.com/roach88/sheetbridge/internal/registry"
	"github.com/roach88/sheetbridge/internal/sheet"
	"github.com/roach88/sheetbridge/internal/store"
	"github.com/roach88/sheetbridge/internal/testutil"
)

const defaultWindow = "main"

// errScripted is the validation failure injected by reject_next.
var errScripted = errors.New("rejected by scenario")

// Options configure a run.
type Options struct {
	// Store, when set, persists the document and its commit log.
	Store *store.Store

	// BridgeObserver and SheetObserver receive store and controller
	// activity in addition to the trace (for example telemetry.Metrics).
	BridgeObserver bridge.Observer
	SheetObserver  sheet.Observer

	// IDs issues window app ids in the order windows open. Defaults to
	// sheet.NewSequenceGenerator("app"), which golden traces depend on.
	IDs sheet.IDGenerator
}

// Run executes a scenario with default options.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithOptions(ctx, scenario, Options{})
}

// RunWithOptions executes a scenario and returns its result.
//
// Each run builds a fresh document, registry and app-id sequence, so runs
// are isolated and deterministic. The returned error reports a run that
// could not start (bad seed or store failure); step failures are recorded
// in Result.Errors instead.
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	policy, err := bridge.ParseNotifyPolicy(scenario.Policy)
	if err != nil {
		return nil, err
	}

	r := &runner{
		ctx:      ctx,
		opts:     opts,
		refresh:  scenario.HostRefresh,
		policy:   policy,
		result:   NewResult(),
		registry: registry.New(),
		ids:      opts.IDs,
		windows:  make(map[string]*window),
		tallies:  make(map[string]*tally),
		subs:     make(map[string]*tracedSubscriber),
		unsubs:   make(map[string]bridge.Unsubscriber),
	}
	if r.ids == nil {
		r.ids = sheet.NewSequenceGenerator("app")
	}
	if err := r.openDocument(scenario.Entity); err != nil {
		return nil, err
	}
	cancel := r.doc.OnChange(r.onChange)
	defer cancel()

	slog.Debug("scenario started", "scenario", scenario.Name, "steps", len(scenario.Steps))
	for i, st := range scenario.Steps {
		r.runStep(i, st)
	}
	slog.Debug("scenario finished", "scenario", scenario.Name, "pass", r.result.Pass)
	return r.result, nil
}

type runner struct {
	ctx     context.Context
	opts    Options
	policy  bridge.NotifyPolicy
	refresh bool
	result  *Result

	doc      *entity.Document
	entity   *tracedEntity
	registry *registry.Registry
	ids      sheet.IDGenerator
	rejects  int

	windows map[string]*window
	tallies map[string]*tally
	subs    map[string]*tracedSubscriber
	unsubs  map[string]bridge.Unsubscriber
}

func (r *runner) openDocument(seed EntitySeed) error {
	data, err := ir.ObjectFromGo(seed.Data)
	if err != nil {
		return fmt.Errorf("entity.data: %w", err)
	}
	owner := true
	if seed.Owner != nil {
		owner = *seed.Owner
	}
	docType := seed.Type
	if docType == "" {
		docType = "Actor"
	}

	schema, err := entity.NewSchemaValidator(entity.DefaultActorSchema)
	if err != nil {
		return err
	}
	docOpts := []entity.DocumentOption{
		entity.WithOwner(owner),
		entity.WithValidator(entity.ValidatorFunc(func(s entity.Snapshot) error {
			if r.rejects > 0 {
				r.rejects--
				return errScripted
			}
			return schema.Validate(s)
		})),
	}

	if r.opts.Store != nil {
		rec := store.DocumentRecord{
			ID:      seed.ID,
			DocType: docType,
			Name:    seed.Name,
			Img:     seed.Img,
			Data:    data,
			Owner:   owner,
		}
		r.doc, err = store.CreateDocument(r.ctx, r.opts.Store, rec, docOpts...)
	} else {
		docOpts = append(docOpts, entity.WithClock(testutil.NewDeterministicClock()))
		r.doc, err = entity.NewDocument(seed.ID, docType,
			entity.Snapshot{Name: seed.Name, Img: seed.Img, Data: data}, docOpts...)
	}
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	r.entity = &tracedEntity{Document: r.doc, r: r}
	return nil
}

func (r *runner) onChange(c entity.Change) {
	r.result.record(TraceEvent{
		Type:     EventChange,
		Name:     c.Snapshot.Name,
		External: boolPtr(c.External),
		Revision: int64Ptr(c.Revision),
	})
	if c.External || r.refresh {
		r.registry.RefreshEntity(r.ctx, c.DocumentID)
	}
}

func (r *runner) runStep(index int, st Step) {
	label := st.Window
	if label == "" {
		label = defaultWindow
	}

	ev := TraceEvent{Type: EventStep, Op: st.Op, Subscriber: st.Subscriber}
	if st.Op != OpRejectNext && st.Op != OpExternalChange {
		ev.Window = label
	}
	r.result.record(ev)

	err := r.apply(label, st)
	if err != nil {
		r.result.record(TraceEvent{Type: EventError, Op: st.Op, Message: err.Error()})
	}
	switch {
	case err != nil && st.Error == "":
		r.result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, st.Op, err))
	case err == nil && st.Error != "":
		r.result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got none", index, st.Op, st.Error))
	case err != nil && !strings.Contains(err.Error(), st.Error):
		r.result.AddError(fmt.Sprintf("steps[%d] %s: error %q does not contain %q", index, st.Op, err, st.Error))
	}

	for j, e := range st.Expect {
		if msg := r.check(label, e); msg != "" {
			r.result.AddError(fmt.Sprintf("steps[%d] expect[%d]: %s", index, j, msg))
		}
	}
}

func (r *runner) apply(label string, st Step) error {
	switch st.Op {
	case OpRender:
		r.window(label).ctrl.Render(r.ctx, sheet.RenderOptions{Editable: st.Editable})
	case OpRenderOverlap:
		w := r.window(label)
		opts := sheet.RenderOptions{Editable: st.Editable}
		w.fake.OnPrepare(func(ctx context.Context) {
			w.ctrl.Render(ctx, opts)
		})
		w.ctrl.Render(r.ctx, opts)
		w.fake.OnPrepare(nil)
	case OpClose:
		return r.window(label).ctrl.Close(r.ctx)
	case OpFailPrepare:
		var err error
		if st.Message != "" {
			err = errors.New(st.Message)
		}
		r.window(label).fake.FailPrepare(err)
	case OpSubscribe:
		s, err := r.store(label)
		if err != nil {
			return err
		}
		sub, ok := r.subs[st.Subscriber]
		if !ok {
			sub = &tracedSubscriber{name: st.Subscriber, r: r}
			r.subs[st.Subscriber] = sub
		}
		unsub, err := s.Subscribe(sub)
		if err != nil {
			return err
		}
		r.unsubs[st.Subscriber] = unsub
	case OpUnsubscribe:
		unsub, ok := r.unsubs[st.Subscriber]
		if !ok {
			return fmt.Errorf("subscriber %q never subscribed", st.Subscriber)
		}
		unsub()
	case OpSet:
		s, err := r.store(label)
		if err != nil {
			return err
		}
		v, err := overlay(s.Get(), st)
		if err != nil {
			return err
		}
		return s.Set(r.ctx, v, st.Force)
	case OpUpdateName:
		s, err := r.store(label)
		if err != nil {
			return err
		}
		return s.Update(r.ctx, func(cur entity.Snapshot) entity.Snapshot {
			cur = cur.Clone()
			cur.Name = *st.Name
			return cur
		})
	case OpRejectNext:
		r.rejects++
	case OpExternalChange:
		v, err := overlay(r.doc.ReadSnapshot(), st)
		if err != nil {
			return err
		}
		return r.doc.ApplyExternal(v)
	case OpDestroy:
		s, err := r.store(label)
		if err != nil {
			return err
		}
		s.Destroy()
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// overlay applies a step's name and data onto base.
func overlay(base entity.Snapshot, st Step) (entity.Snapshot, error) {
	v := base.Clone()
	if st.Name != nil {
		v.Name = *st.Name
	}
	if st.Data != nil {
		data, err := ir.ObjectFromGo(st.Data)
		if err != nil {
			return entity.Snapshot{}, fmt.Errorf("data: %w", err)
		}
		v.Data = data
	}
	return v, nil
}

// store returns the window's live store, falling back to the last store it
// built so steps can exercise a destroyed store after close.
func (r *runner) store(label string) (*bridge.Store[entity.Snapshot], error) {
	w := r.window(label)
	if s := w.ctrl.Store(); s != nil {
		return s, nil
	}
	if w.last != nil {
		return w.last, nil
	}
	return nil, fmt.Errorf("window %q has no store", label)
}

func (r *runner) check(label string, e Expectation) string {
	switch {
	case e.Notified != nil:
		t := r.tallies[e.Notified.Subscriber]
		count := 0
		if t != nil {
			count = t.count
		}
		if count != e.Notified.Count {
			return fmt.Sprintf("%s notified %d times, want %d", e.Notified.Subscriber, count, e.Notified.Count)
		}
		if e.Notified.Name != nil {
			last := ""
			if t != nil {
				last = t.last.Name
			}
			if last != *e.Notified.Name {
				return fmt.Sprintf("%s last saw name %q, want %q", e.Notified.Subscriber, last, *e.Notified.Name)
			}
		}
	case e.State != "":
		if got := r.window(label).ctrl.State().String(); got != e.State {
			return fmt.Sprintf("window %s state %s, want %s", label, got, e.State)
		}
	case e.Stores != nil:
		if got := r.window(label).stores; got != *e.Stores {
			return fmt.Sprintf("window %s built %d stores, want %d", label, got, *e.Stores)
		}
	case e.CurrentName != nil:
		s, err := r.store(label)
		if err != nil {
			return err.Error()
		}
		if got := s.Get().Name; got != *e.CurrentName {
			return fmt.Sprintf("window %s current name %q, want %q", label, got, *e.CurrentName)
		}
	case e.Registered != nil:
		if got := len(r.registry.Lookup(r.doc.ID())); got != *e.Registered {
			return fmt.Sprintf("%d renderers registered, want %d", got, *e.Registered)
		}
	case e.Editable != nil:
		if got := r.window(label).ctrl.Editable(); got != *e.Editable {
			return fmt.Sprintf("window %s editable %t, want %t", label, got, *e.Editable)
		}
	case e.Revision != nil:
		if got := r.doc.Revision(); got != *e.Revision {
			return fmt.Sprintf("document revision %d, want %d", got, *e.Revision)
		}
	}
	return ""
}
