package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
	"orgs-sync/internal/schema"
)

type harness struct {
	ctrl     *Controller
	gw       *fakeGateway
	recorder *Recorder
}

func newHarness(t *testing.T, opts Options, initial *gateway.Response) *harness {
	t.Helper()
	gw := &fakeGateway{}
	gw.handle(func(req gateway.Request) (*gateway.Response, error) { return initial, nil })
	rec := &Recorder{}
	ctrl := NewController(metadata.NewStaticProvider(testBootstrap()), gw, rec, opts)
	require.NoError(t, ctrl.Initialize(context.Background()))
	rec.Drain()
	return &harness{ctrl: ctrl, gw: gw, recorder: rec}
}

func TestInitialize_SelectsFirstEntityAndLists(t *testing.T) {
	h := newHarness(t, Options{}, ok(`[]`))

	assert.Equal(t, StateReady, h.ctrl.State())
	gets := h.gw.callsFor(gateway.MethodGet)
	require.Len(t, gets, 1)
	assert.Equal(t, "local", gets[0].ConnectionAlias)
	assert.Equal(t, map[string]any{
		gateway.ParamEntity:       "Account",
		gateway.ParamOffset:       0,
		gateway.ParamLimit:        5,
		gateway.ParamSearchString: "",
		gateway.ParamFields:       "Name,Rating",
	}, gets[0].Params)

	v := h.ctrl.View()
	assert.Equal(t, []string{"Account", "Contact"}, v.EntityCatalog)
	assert.Equal(t, "Account", v.EntityType)
	assert.False(t, v.ShowTable)
	assert.Len(t, v.Columns, 2)
}

func TestInitialize_FailureDegradesAndCanRetry(t *testing.T) {
	gw := &fakeGateway{}
	rec := &Recorder{}
	fail := true
	provider := providerFunc(func(ctx context.Context) (*metadata.Bootstrap, error) {
		if fail {
			return nil, errors.New("metadata offline")
		}
		return testBootstrap(), nil
	})
	ctrl := NewController(provider, gw, rec, Options{})

	err := ctrl.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, gateway.KindBootstrap, gateway.KindOf(err))
	assert.Equal(t, StateDegraded, ctrl.State())
	assert.Equal(t, 0, gw.count())

	notes := rec.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, VariantError, notes[0].Variant)
	assert.Equal(t, "metadata offline", notes[0].Message)

	v := ctrl.View()
	assert.Empty(t, v.EntityCatalog)
	assert.Empty(t, v.Records)

	assert.ErrorIs(t, ctrl.List(context.Background()), ErrNotReady)
	assert.Equal(t, 0, gw.count())

	fail = false
	require.NoError(t, ctrl.Initialize(context.Background()))
	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, 1, gw.count())

	assert.ErrorIs(t, ctrl.Initialize(context.Background()), ErrAlreadyInitialized)
}

func TestInitialize_InvalidBootstrap(t *testing.T) {
	provider := providerFunc(func(ctx context.Context) (*metadata.Bootstrap, error) {
		return &metadata.Bootstrap{EntityCatalog: []string{"Account"}, ConnectionAlias: "local"}, nil
	})
	ctrl := NewController(provider, &fakeGateway{}, nil, Options{})

	err := ctrl.Initialize(context.Background())
	assert.Equal(t, gateway.KindBootstrap, gateway.KindOf(err))
	assert.Equal(t, StateDegraded, ctrl.State())
}

func TestScenarioA_ShortPageDisablesNext(t *testing.T) {
	h := newHarness(t, Options{Limit: 5}, records(gateway.Record{"Id": "1", "Name": "Acme", "Rating": "Hot"}))

	v := h.ctrl.View()
	require.Len(t, v.Records, 1)
	assert.True(t, v.DisableNext)
	assert.True(t, h.ctrl.DisableNext())
	assert.True(t, v.DisablePrevious)
	assert.True(t, v.ShowTable)

	assert.ErrorIs(t, h.ctrl.Next(context.Background()), ErrLastPage)
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 1)
}

func TestList_CacheNeverExceedsLimit(t *testing.T) {
	h := newHarness(t, Options{Limit: 5}, records(page("a", 7)...))

	v := h.ctrl.View()
	assert.Len(t, v.Records, 5)
	assert.False(t, v.DisableNext)
}

func TestScenarioB_DeleteSplicesWithoutRefetch(t *testing.T) {
	h := newHarness(t, Options{}, records(gateway.Record{"Id": "1", "Name": "Acme"}))
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return ok(`[{"Id":"1"}]`), nil
	})

	require.NoError(t, h.ctrl.Delete(context.Background(), "1"))

	assert.Empty(t, h.ctrl.View().Records)
	dels := h.gw.callsFor(gateway.MethodDelete)
	require.Len(t, dels, 1)
	assert.Equal(t, map[string]any{gateway.ParamEntity: "Account", gateway.ParamID: "1"}, dels[0].Params)
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 1, "delete must not refetch")

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Record was deleted", notes[0].Title)
	assert.Equal(t, `[{"Id":"1"}]`, notes[0].Message)
}

func TestDelete_FailureKeepsCache(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 2)...))
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return failed("403", "insufficient access"), nil
	})

	err := h.ctrl.Delete(context.Background(), "a-0")
	assert.Equal(t, gateway.KindGateway, gateway.KindOf(err))
	assert.Len(t, h.ctrl.View().Records, 2)

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "insufficient access", notes[0].Message)
}

func TestDelete_UncachedIdIsRefused(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 1)...))

	err := h.ctrl.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotCached)
	assert.Equal(t, gateway.KindPrecondition, gateway.KindOf(err))
	assert.Empty(t, h.gw.callsFor(gateway.MethodDelete))
	assert.Equal(t, 1, h.recorder.Len())
}

func TestScenarioC_CreateAppendsThenRefetches(t *testing.T) {
	h := newHarness(t, Options{}, records(gateway.Record{"Id": "1", "Name": "Acme"}))
	require.NoError(t, h.ctrl.OpenCreate())

	var cacheBeforeRefetch []gateway.Record
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		if req.Method == gateway.MethodPost {
			return ok(`[{"Id":"2","Name":"Acme2"}]`), nil
		}
		cacheBeforeRefetch = h.ctrl.View().Records
		return records(
			gateway.Record{"Id": "2", "Name": "Acme2"},
			gateway.Record{"Id": "1", "Name": "Acme"},
		), nil
	})

	require.NoError(t, h.ctrl.Submit(context.Background(), map[string]any{"Name": "Acme2"}))

	posts := h.gw.callsFor(gateway.MethodPost)
	require.Len(t, posts, 1)
	assert.JSONEq(t, `[{"Name":"Acme2"}]`, posts[0].Body)
	assert.Equal(t, map[string]any{gateway.ParamEntity: "Account"}, posts[0].Params)

	require.Len(t, cacheBeforeRefetch, 2)
	assert.Equal(t, "2", cacheBeforeRefetch[1].ID())

	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 2)
	v := h.ctrl.View()
	require.Len(t, v.Records, 2)
	assert.Equal(t, "2", v.Records[0].ID())
	assert.False(t, v.Form.Visible)

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Record was created", notes[0].Title)
}

func TestSubmit_EditPatchesWithDraftId(t *testing.T) {
	h := newHarness(t, Options{}, records(gateway.Record{"Id": "1", "Name": "Acme", "Rating": "Hot"}))
	require.NoError(t, h.ctrl.OpenEdit("1"))

	form := h.ctrl.View().Form
	assert.Equal(t, "Account", form.EntityLabel)
	assert.True(t, form.ShowSave)
	require.Len(t, form.Fields, 3)
	assert.Equal(t, "Acme", form.Fields[0].Value)

	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		if req.Method == gateway.MethodPatch {
			return ok(`[{"Id":"1"}]`), nil
		}
		return records(gateway.Record{"Id": "1", "Name": "Acme Corp", "Rating": "Warm"}), nil
	})

	err := h.ctrl.Submit(context.Background(), map[string]any{"Id": "999", "Name": "Acme Corp", "Rating": "Warm"})
	require.NoError(t, err)

	patches := h.gw.callsFor(gateway.MethodPatch)
	require.Len(t, patches, 1)
	assert.JSONEq(t, `[{"Id":"1","Name":"Acme Corp","Rating":"Warm"}]`, patches[0].Body)
	assert.Equal(t, "Acme Corp", h.ctrl.View().Records[0]["Name"])

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Record was updated", notes[0].Title)
}

func TestSubmit_EditRoundTrip(t *testing.T) {
	record := gateway.Record{"Id": "1", "Name": "Acme", "Rating": "Hot"}
	h := newHarness(t, Options{}, records(record))
	require.NoError(t, h.ctrl.OpenEdit("1"))

	submitted := map[string]any{}
	for _, fd := range h.ctrl.View().Form.Fields {
		submitted[fd.Name] = fd.Value
	}
	require.NoError(t, h.ctrl.Submit(context.Background(), submitted))

	patches := h.gw.callsFor(gateway.MethodPatch)
	require.Len(t, patches, 1)
	assert.JSONEq(t, `[{"Id":"1","Name":"Acme","Rating":"Hot"}]`, patches[0].Body)
}

func TestSubmit_FailureClosesModalByDefault(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 1)...))
	require.NoError(t, h.ctrl.OpenCreate())
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return failed("400", "Name is required"), nil
	})

	err := h.ctrl.Submit(context.Background(), map[string]any{})
	assert.Equal(t, gateway.KindGateway, gateway.KindOf(err))
	assert.False(t, h.ctrl.View().Form.Visible)
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 1, "failed submit must not refetch")
	assert.Len(t, h.ctrl.View().Records, 1)

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Name is required", notes[0].Message)
}

func TestSubmit_FailureKeepsModalWhenConfigured(t *testing.T) {
	h := newHarness(t, Options{KeepModalOnFailure: true}, records(page("a", 1)...))
	require.NoError(t, h.ctrl.OpenEdit("a-0"))
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return nil, errors.New("connection reset")
	})

	err := h.ctrl.Submit(context.Background(), map[string]any{"Name": "x"})
	assert.Equal(t, gateway.KindTransport, gateway.KindOf(err))

	form := h.ctrl.View().Form
	assert.True(t, form.Visible)
	assert.Equal(t, schema.ModeEdit, form.Mode)
	assert.Equal(t, "a 0", form.Fields[0].Value)
}

func TestSubmit_RequiresEditableForm(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 1)...))

	assert.ErrorIs(t, h.ctrl.Submit(context.Background(), nil), ErrNotEditable)

	require.NoError(t, h.ctrl.OpenView("a-0"))
	assert.ErrorIs(t, h.ctrl.Submit(context.Background(), nil), ErrNotEditable)
	assert.Equal(t, 1, h.gw.count())
}

func TestScenarioD_ListFailureEmptiesCacheKeepsOffset(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 5)...))
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return failed("500", "boom"), nil
	})

	err := h.ctrl.Next(context.Background())
	assert.Equal(t, gateway.KindGateway, gateway.KindOf(err))

	v := h.ctrl.View()
	assert.Empty(t, v.Records)
	assert.Equal(t, 5, v.Page.Offset)
	assert.False(t, v.Loading)

	notes := h.recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "boom", notes[0].Message)
	assert.Equal(t, VariantError, notes[0].Variant)

	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return records(page("a", 5)...), nil
	})
	require.NoError(t, h.ctrl.Previous(context.Background()))
	assert.Equal(t, 0, h.ctrl.View().Page.Offset)
	assert.Len(t, h.ctrl.View().Records, 5)
}

func TestList_TransportFailureTreatedLikeGatewayFailure(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 3)...))
	h.gw.handle(func(req gateway.Request) (*gateway.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	err := h.ctrl.Refresh(context.Background())
	assert.Equal(t, gateway.KindTransport, gateway.KindOf(err))
	assert.Empty(t, h.ctrl.View().Records)
	assert.Equal(t, 1, h.recorder.Len())
}

// gatedGateway holds each list response until its offset is released.
type gatedGateway struct {
	*fakeGateway
	started chan int
	gates   map[int]chan struct{}
}

func newGated(offsets ...int) *gatedGateway {
	g := &gatedGateway{fakeGateway: &fakeGateway{}, started: make(chan int, 8), gates: map[int]chan struct{}{}}
	for _, o := range offsets {
		g.gates[o] = make(chan struct{})
	}
	g.handle(func(req gateway.Request) (*gateway.Response, error) {
		offset := req.Params[gateway.ParamOffset].(int)
		g.started <- offset
		<-g.gates[offset]
		return records(page(fmtOffset(offset), 5)...), nil
	})
	return g
}

func fmtOffset(offset int) string {
	if offset == 0 {
		return "p0"
	}
	return "p5"
}

func TestScenarioE_StaleListNeverClobbersNewerPage(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{name: "newer page arrives first", order: []int{5, 0}},
		{name: "older page arrives first", order: []int{0, 5}},
	}
	for _, tt := range tests {
		order := tt.order
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{}, records(page("p0", 5)...))
			g := newGated(0, 5)
			h.ctrl.gw = g

			var wg sync.WaitGroup
			results := make(map[int]error)
			var mu sync.Mutex
			run := func(offset int, op func(context.Context) error) {
				defer wg.Done()
				err := op(context.Background())
				mu.Lock()
				results[offset] = err
				mu.Unlock()
			}

			wg.Add(1)
			go run(0, h.ctrl.Refresh)
			require.Equal(t, 0, <-g.started)

			wg.Add(1)
			go run(5, h.ctrl.Next)
			require.Equal(t, 5, <-g.started)
			assert.True(t, h.ctrl.Loading())

			for _, o := range order {
				close(g.gates[o])
				time.Sleep(10 * time.Millisecond)
			}
			wg.Wait()

			v := h.ctrl.View()
			assert.Equal(t, 5, v.Page.Offset)
			require.Len(t, v.Records, 5)
			assert.Equal(t, "p5-0", v.Records[0].ID())
			assert.False(t, v.Loading)

			assert.ErrorIs(t, results[0], ErrStaleResponse)
			assert.NoError(t, results[5])
			assert.Equal(t, 0, h.recorder.Len(), "stale responses are not notified")
		})
	}
}

// heldSaves returns a handler that blocks every POST until release is closed
// and answers lists with list.
func heldSaves(started chan<- struct{}, release <-chan struct{}, list *gateway.Response) func(gateway.Request) (*gateway.Response, error) {
	return func(req gateway.Request) (*gateway.Response, error) {
		if req.Method != gateway.MethodPost {
			return list, nil
		}
		started <- struct{}{}
		<-release
		return records(gateway.Record{"Id": "acc-new", "Name": "Acme"}), nil
	}
}

func TestSubmit_LateResponseLeavesNewerFormAlone(t *testing.T) {
	t.Run("entity type changed", func(t *testing.T) {
		h := newHarness(t, Options{}, records(page("p0", 5)...))
		started, release := make(chan struct{}, 1), make(chan struct{})
		h.gw.handle(heldSaves(started, release, ok(`[]`)))

		require.NoError(t, h.ctrl.OpenCreate())
		done := make(chan error, 1)
		go func() { done <- h.ctrl.Submit(context.Background(), map[string]any{"Name": "Acme"}) }()
		<-started

		require.NoError(t, h.ctrl.ChangeEntityType(context.Background(), "Contact"))
		require.NoError(t, h.ctrl.OpenCreate())
		close(release)
		require.NoError(t, <-done)

		v := h.ctrl.View()
		assert.Equal(t, "Contact", v.EntityType)
		assert.Equal(t, schema.ModeCreate, v.Form.Mode)
		assert.True(t, v.Form.Visible)
		assert.Empty(t, v.Records, "an Account record never lands in the Contact cache")
		assert.Len(t, h.gw.callsFor(gateway.MethodGet), 2, "initialize and entity change only")

		notes := h.recorder.Drain()
		require.Len(t, notes, 1)
		assert.Equal(t, "Record was created", notes[0].Title)
	})

	t.Run("form reopened on the same entity", func(t *testing.T) {
		h := newHarness(t, Options{}, records(page("p0", 5)...))
		started, release := make(chan struct{}, 1), make(chan struct{})
		h.gw.handle(heldSaves(started, release, records(page("p0", 5)...)))

		require.NoError(t, h.ctrl.OpenCreate())
		done := make(chan error, 1)
		go func() { done <- h.ctrl.Submit(context.Background(), map[string]any{"Name": "Acme"}) }()
		<-started

		h.ctrl.CloseModal()
		require.NoError(t, h.ctrl.OpenEdit("p0-1"))
		close(release)
		require.NoError(t, <-done)

		v := h.ctrl.View()
		assert.Equal(t, schema.ModeEdit, v.Form.Mode)
		assert.True(t, v.Form.Visible)
		require.Len(t, v.Records, 5)
		assert.Len(t, h.gw.callsFor(gateway.MethodGet), 2, "the page is still refetched")
	})
}

func TestChangeEntityType(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 5)...))
	h.ctrl.SetSearch(" acme ")
	require.NoError(t, h.ctrl.ResetAndSearch(context.Background()))
	require.NoError(t, h.ctrl.Next(context.Background()))
	require.NoError(t, h.ctrl.OpenView("a-0"))

	before := len(h.gw.callsFor(gateway.MethodGet))
	require.NoError(t, h.ctrl.ChangeEntityType(context.Background(), "Contact"))

	gets := h.gw.callsFor(gateway.MethodGet)
	require.Len(t, gets, before+1)
	last := gets[len(gets)-1]
	assert.Equal(t, "Contact", last.Params[gateway.ParamEntity])
	assert.Equal(t, 0, last.Params[gateway.ParamOffset])
	assert.Equal(t, "", last.Params[gateway.ParamSearchString])
	assert.Equal(t, "LastName,Email", last.Params[gateway.ParamFields])

	v := h.ctrl.View()
	assert.Equal(t, "Contact", v.EntityType)
	assert.Equal(t, PageState{Limit: 5}, v.Page)
	assert.False(t, v.Form.Visible)
	assert.Equal(t, "LastName", v.Columns[0].FieldName)
}

func TestChangeEntityType_Unknown(t *testing.T) {
	h := newHarness(t, Options{}, ok(`[]`))

	err := h.ctrl.ChangeEntityType(context.Background(), "Opportunity")
	assert.ErrorIs(t, err, ErrUnknownEntityType)
	assert.Equal(t, "Account", h.ctrl.View().EntityType)
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 1)
}

func TestResetAndSearchSendsTrimmedSearch(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 5)...))
	require.NoError(t, h.ctrl.Next(context.Background()))

	h.ctrl.SetSearch("  acme  ")
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 2, "SetSearch does not fetch")

	require.NoError(t, h.ctrl.ResetAndSearch(context.Background()))
	gets := h.gw.callsFor(gateway.MethodGet)
	last := gets[len(gets)-1]
	assert.Equal(t, 0, last.Params[gateway.ParamOffset])
	assert.Equal(t, "acme", last.Params[gateway.ParamSearchString])
}

func TestPrevious_RefusedOnFirstPage(t *testing.T) {
	h := newHarness(t, Options{}, records(page("a", 5)...))

	err := h.ctrl.Previous(context.Background())
	assert.ErrorIs(t, err, ErrFirstPage)
	assert.Equal(t, gateway.KindPrecondition, gateway.KindOf(err))
	assert.Len(t, h.gw.callsFor(gateway.MethodGet), 1)
	assert.Equal(t, 0, h.ctrl.View().Page.Offset)
}

func TestHandleRowAction(t *testing.T) {
	h := newHarness(t, Options{}, records(gateway.Record{"Id": "1", "Name": "Acme", "Rating": "Hot"}))

	require.NoError(t, h.ctrl.HandleRowAction(context.Background(), schema.ActionView, "1"))
	form := h.ctrl.View().Form
	assert.True(t, form.Visible)
	assert.True(t, form.ViewMode)
	assert.False(t, form.ShowSave)
	assert.Equal(t, "Hot", form.Fields[1].Value)
	assert.Equal(t, "1", form.Fields[2].Value)
	assert.True(t, form.Fields[2].Hidden)

	assert.ErrorIs(t, h.ctrl.HandleRowAction(context.Background(), schema.ActionEdit, "1"), ErrIllegalTransition)
	h.ctrl.CloseModal()
	require.NoError(t, h.ctrl.HandleRowAction(context.Background(), schema.ActionEdit, "1"))
	assert.Equal(t, schema.ModeEdit, h.ctrl.View().Form.Mode)
	h.ctrl.CloseModal()

	err := h.ctrl.HandleRowAction(context.Background(), "archive", "1")
	assert.ErrorIs(t, err, ErrUnhandledAction)
	assert.Equal(t, "Unhandled action: archive", gateway.MessageOf(err))

	assert.ErrorIs(t, h.ctrl.HandleRowAction(context.Background(), schema.ActionEdit, "nope"), ErrRecordNotCached)
}

func TestViewIsACopy(t *testing.T) {
	h := newHarness(t, Options{}, records(gateway.Record{"Id": "1", "Name": "Acme"}))

	v := h.ctrl.View()
	v.Records[0]["Name"] = "mutated"
	v.EntityCatalog[0] = "mutated"

	again := h.ctrl.View()
	assert.Equal(t, "Acme", again.Records[0]["Name"])
	assert.Equal(t, "Account", again.EntityCatalog[0])
}
