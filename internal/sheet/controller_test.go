package sheet_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/entity"
	"github.com/roach88/sheetbridge/internal/ir"
	"github.com/roach88/sheetbridge/internal/registry"
	"github.com/roach88/sheetbridge/internal/sheet"
	"github.com/roach88/sheetbridge/internal/testutil"
)

type fixture struct {
	window   *testutil.FakeWindow
	entity   *testutil.RecordingEntity[entity.Snapshot]
	mounter  *testutil.Mounter[entity.Snapshot]
	registry *registry.Registry
	obs      *countingObserver
	ctrl     *sheet.Controller[entity.Snapshot]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		window:   testutil.NewFakeWindow("app-1"),
		entity:   testutil.NewRecordingEntity("actor-1", snap("Bob")),
		mounter:  &testutil.Mounter[entity.Snapshot]{},
		registry: registry.New(),
		obs:      &countingObserver{branches: map[sheet.Branch]int{}},
	}
	ctrl, err := sheet.New(sheet.Config[entity.Snapshot]{
		Window:   f.window,
		Entity:   f.entity,
		Mount:    f.mounter.Mount,
		Project:  entity.SheetData,
		Registry: f.registry,
		Observer: f.obs,
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func snap(name string) entity.Snapshot {
	return entity.Snapshot{Name: name, Data: ir.IRObject{}}
}

func names(values []entity.Snapshot) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Name
	}
	return out
}

type countingObserver struct {
	mu        sync.Mutex
	branches  map[sheet.Branch]int
	failed    int
	mounted   int
	unmounted int
}

func (o *countingObserver) Rendered(b sheet.Branch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.branches[b]++
}

func (o *countingObserver) RenderFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func (o *countingObserver) Mounted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mounted++
}

func (o *countingObserver) Unmounted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unmounted++
}

func TestNew_ValidatesConfig(t *testing.T) {
	e := testutil.NewRecordingEntity("actor-1", snap("Bob"))
	w := testutil.NewFakeWindow("app-1")
	var m testutil.Mounter[entity.Snapshot]

	_, err := sheet.New(sheet.Config[entity.Snapshot]{Entity: e, Mount: m.Mount})
	assert.Error(t, err, "missing window")
	_, err = sheet.New(sheet.Config[entity.Snapshot]{Window: w, Mount: m.Mount})
	assert.Error(t, err, "missing entity")
	_, err = sheet.New(sheet.Config[entity.Snapshot]{Window: w, Entity: e})
	assert.Error(t, err, "missing mount")

	ctrl, err := sheet.New(sheet.Config[entity.Snapshot]{Window: w, Entity: e, Mount: m.Mount})
	require.NoError(t, err)
	assert.Equal(t, sheet.Unmounted, ctrl.State())
	assert.Nil(t, ctrl.Store())
	assert.Equal(t, "app-1", ctrl.AppID())
	assert.Equal(t, "actor-1", ctrl.EntityID())
}

func TestRender_FirstRenderMounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Same(t, f.ctrl, got)
	assert.Equal(t, sheet.Mounted, f.ctrl.State())
	require.Len(t, f.mounter.Views(), 1)
	view := f.mounter.Latest()
	assert.Same(t, f.ctrl.Store(), view.Store())
	assert.Equal(t, []string{"Bob"}, names(view.Values()))
	assert.Equal(t, 1, f.window.Prepares())
	assert.True(t, f.registry.Has("actor-1", "app-1"))
	assert.True(t, f.ctrl.Editable(), "owner is editable by default")
	assert.Equal(t, 1, f.obs.mounted)
}

func TestRender_SecondRenderReseedsWithoutRemount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Render(ctx, sheet.RenderOptions{})
	store := f.ctrl.Store()

	f.entity.SetSnapshot(snap("Carol"))
	f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Same(t, store, f.ctrl.Store(), "store must be reused")
	require.Len(t, f.mounter.Views(), 1, "view must not be remounted")
	assert.Equal(t, 1, f.window.Prepares())
	assert.Equal(t, []string{"Bob", "Carol"}, names(f.mounter.Latest().Values()))
	assert.Equal(t, "Carol", store.Get().Name)

	// The forced set still commits through the entity.
	assert.Equal(t, []string{"Carol"}, names(f.entity.Commits()))
	assert.Equal(t, 1, f.obs.branches[sheet.BranchMount])
	assert.Equal(t, 1, f.obs.branches[sheet.BranchRefresh])
}

func TestRender_ReseedNotifiesEvenWhenCommitFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Render(ctx, sheet.RenderOptions{})

	f.entity.QueueResults(false)
	f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Equal(t, 2, f.mounter.Latest().Count())
}

func TestRender_ForceFlagHasNoEffect(t *testing.T) {
	ctx := context.Background()
	run := func(force bool) (*fixture, []string) {
		f := newFixture(t)
		f.ctrl.Render(ctx, sheet.RenderOptions{Force: force})
		f.entity.SetSnapshot(snap("Carol"))
		f.ctrl.Render(ctx, sheet.RenderOptions{Force: force})
		return f, names(f.mounter.Latest().Values())
	}

	plain, plainValues := run(false)
	forced, forcedValues := run(true)

	assert.Equal(t, plainValues, forcedValues)
	assert.Equal(t, []string{"Bob", "Carol"}, forcedValues)
	assert.Equal(t, len(plain.mounter.Views()), len(forced.mounter.Views()))
	assert.Equal(t, plain.window.Prepares(), forced.window.Prepares())
	assert.Equal(t, names(plain.entity.Commits()), names(forced.entity.Commits()))
}

func TestRender_EditableFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.entity.SetOwner(false)
	f.ctrl.Render(ctx, sheet.RenderOptions{})
	assert.False(t, f.ctrl.Editable())

	f.ctrl.Render(ctx, sheet.RenderOptions{Editable: sheet.Editable(true)})
	assert.True(t, f.ctrl.Editable())

	f.ctrl.Render(ctx, sheet.RenderOptions{})
	assert.False(t, f.ctrl.Editable(), "override applies to one render only")
}

func TestRender_PrepareFailureShowsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("template missing")
	f.window.FailPrepare(boom)

	got := f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Same(t, f.ctrl, got, "failure is not propagated to the caller")
	assert.Equal(t, sheet.Errored, f.ctrl.State())
	assert.Nil(t, f.ctrl.Store())
	assert.Empty(t, f.mounter.Views())

	shown := f.window.Errors()
	require.Len(t, shown, 1)
	var rerr *sheet.RenderError
	require.ErrorAs(t, shown[0], &rerr)
	assert.Equal(t, "app-1", rerr.AppID)
	assert.Equal(t, "actor-1", rerr.EntityID)
	assert.ErrorIs(t, shown[0], boom)
	assert.True(t, sheet.IsRenderError(shown[0]))
	assert.Equal(t, 1, f.obs.failed)
}

func TestRender_ErroredIsTerminalUntilClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.window.FailPrepare(errors.New("boom"))
	f.ctrl.Render(ctx, sheet.RenderOptions{})

	f.window.FailPrepare(nil)
	f.ctrl.Render(ctx, sheet.RenderOptions{})
	assert.Equal(t, sheet.Errored, f.ctrl.State())
	assert.Equal(t, 1, f.window.Prepares())
	assert.Equal(t, 1, f.obs.branches[sheet.BranchErrored])

	require.NoError(t, f.ctrl.Close(ctx))
	assert.False(t, f.registry.Has("actor-1", "app-1"))

	f.ctrl.Render(ctx, sheet.RenderOptions{})
	assert.Equal(t, sheet.Mounted, f.ctrl.State())
}

func TestRender_MountFailureDestroysStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mounter.Fail(errors.New("bad component"))

	f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Equal(t, sheet.Errored, f.ctrl.State())
	assert.Nil(t, f.ctrl.Store())
	require.Len(t, f.window.Errors(), 1)
}

func TestRender_OverlapDuringMountCoalesces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	overlaps := 0
	f.window.OnPrepare(func(ctx context.Context) {
		overlaps++
		// Two host renders arrive while the first is still preparing.
		f.entity.SetSnapshot(snap("Carol"))
		f.ctrl.Render(ctx, sheet.RenderOptions{})
		f.ctrl.Render(ctx, sheet.RenderOptions{})
	})

	f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Equal(t, 1, overlaps)
	assert.Equal(t, sheet.Mounted, f.ctrl.State())
	require.Len(t, f.mounter.Views(), 1, "exactly one view")
	// Initial subscribe plus one coalesced forced refresh.
	assert.Equal(t, []string{"Carol", "Carol"}, names(f.mounter.Latest().Values()))
	assert.Equal(t, 2, f.obs.branches[sheet.BranchCoalesced])
	assert.Equal(t, 1, f.registry.Len())
}

func TestRender_ConcurrentRendersBuildOneStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.Render(ctx, sheet.RenderOptions{})
		}()
	}
	wg.Wait()

	assert.Equal(t, sheet.Mounted, f.ctrl.State())
	assert.Len(t, f.mounter.Views(), 1)
	assert.Equal(t, 1, f.window.Prepares())
}

func TestClose_TearsDownMountedSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Render(ctx, sheet.RenderOptions{})
	store := f.ctrl.Store()
	view := f.mounter.Latest()

	extra := 0
	unsub, err := store.SubscribeFunc(func(entity.Snapshot) { extra++ })
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Close(ctx))

	assert.Equal(t, sheet.Unmounted, f.ctrl.State())
	assert.Nil(t, f.ctrl.Store())
	assert.True(t, view.Destroyed())
	assert.True(t, store.Destroyed())
	assert.Equal(t, 0, store.Len())
	assert.False(t, f.registry.Has("actor-1", "app-1"))
	assert.Empty(t, f.registry.Lookup("actor-1"))
	assert.Equal(t, 1, f.window.Closes())
	assert.Equal(t, 1, f.obs.unmounted)

	assert.NotPanics(t, func() { unsub() })
	assert.ErrorIs(t, store.Set(ctx, snap("late"), true), bridge.ErrDestroyed)
	assert.Equal(t, 1, extra)
}

func TestClose_UnmountedOnlyClosesWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Close(ctx))
	require.NoError(t, f.ctrl.Close(ctx))

	assert.Equal(t, sheet.Unmounted, f.ctrl.State())
	assert.Equal(t, 2, f.window.Closes())
	assert.Equal(t, 0, f.obs.unmounted)
}

func TestClose_DuringMountAbandonsRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.window.OnPrepare(func(ctx context.Context) {
		require.NoError(t, f.ctrl.Close(ctx))
	})

	f.ctrl.Render(ctx, sheet.RenderOptions{})

	assert.Equal(t, sheet.Unmounted, f.ctrl.State())
	assert.Nil(t, f.ctrl.Store())
	views := f.mounter.Views()
	require.Len(t, views, 1)
	assert.True(t, views[0].Destroyed(), "abandoned view is torn down")
	assert.True(t, views[0].Store().Destroyed())
	assert.False(t, f.registry.Has("actor-1", "app-1"))
	assert.Equal(t, 0, f.obs.mounted)
}

func TestRefresh_ThroughRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Render(ctx, sheet.RenderOptions{})

	f.entity.SetSnapshot(snap("Dana"))
	n := f.registry.RefreshEntity(ctx, "actor-1")

	assert.Equal(t, 1, n)
	assert.Equal(t, "Dana", f.mounter.Latest().Last().Name)
}

func TestController_WithDocumentChangeLoop(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	doc, err := entity.NewDocument("actor-1", "Actor", snap("Bob"))
	require.NoError(t, err)
	cancel := doc.OnChange(func(c entity.Change) {
		reg.RefreshEntity(ctx, c.DocumentID)
	})
	defer cancel()

	var m testutil.Mounter[entity.Snapshot]
	ctrl, err := sheet.New(sheet.Config[entity.Snapshot]{
		Window:   testutil.NewFakeWindow("app-1"),
		Entity:   doc,
		Mount:    m.Mount,
		Project:  entity.SheetData,
		Registry: reg,
	})
	require.NoError(t, err)
	ctrl.Render(ctx, sheet.RenderOptions{})

	// A non-forced edit from the view commits, the document change
	// re-renders the sheet, and the forced re-seed reaches the view.
	require.NoError(t, ctrl.Store().Update(ctx, func(s entity.Snapshot) entity.Snapshot {
		s.Name = "Carol"
		return s
	}))

	assert.Equal(t, "Carol", doc.ReadSnapshot().Name)
	assert.Equal(t, []string{"Bob", "Carol"}, names(m.Latest().Values()))
	assert.Equal(t, int64(1), doc.Revision())

	require.NoError(t, ctrl.Close(ctx))
}

func TestController_RenderersForSameEntity(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	e := testutil.NewRecordingEntity("actor-1", snap("Bob"))

	var ctrls []*sheet.Controller[entity.Snapshot]
	var mounters []*testutil.Mounter[entity.Snapshot]
	gen := sheet.NewSequenceGenerator("win")
	for i := 0; i < 2; i++ {
		m := &testutil.Mounter[entity.Snapshot]{}
		c, err := sheet.New(sheet.Config[entity.Snapshot]{
			Window:   testutil.NewFakeWindow(gen.Generate()),
			Entity:   e,
			Mount:    m.Mount,
			Registry: reg,
		})
		require.NoError(t, err)
		c.Render(ctx, sheet.RenderOptions{})
		ctrls = append(ctrls, c)
		mounters = append(mounters, m)
	}
	require.Len(t, reg.Lookup("actor-1"), 2)
	assert.Equal(t, "win-1", reg.Lookup("actor-1")[0].AppID())

	e.SetSnapshot(snap("Eve"))
	reg.RefreshEntity(ctx, "actor-1")
	for _, m := range mounters {
		assert.Equal(t, "Eve", m.Latest().Last().Name)
	}

	require.NoError(t, ctrls[0].Close(ctx))
	require.Len(t, reg.Lookup("actor-1"), 1)
	assert.Equal(t, "win-2", reg.Lookup("actor-1")[0].AppID())
	require.NoError(t, ctrls[1].Close(ctx))
}
