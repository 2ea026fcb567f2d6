package async

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result struct {
	v   string
	err error
}

type call struct {
	ctx  context.Context
	deps []any
	done chan result
}

func (c *call) resolve(v string) { c.done <- result{v: v} }
func (c *call) reject(err error) { c.done <- result{err: err} }
func (c *call) canceled() bool   { return c.ctx.Err() != nil }
func (c *call) dep(i int) any    { return c.deps[i] }

// fetcher answers only when the test resolves a call, even after the call's
// context is cancelled, like a server that ignores the abort.
type fetcher struct {
	started chan *call
}

func newFetcher() *fetcher {
	return &fetcher{started: make(chan *call, 16)}
}

func (f *fetcher) fetch(ctx context.Context, deps []any) (string, error) {
	c := &call{ctx: ctx, deps: deps, done: make(chan result, 1)}
	f.started <- c
	r := <-c.done
	return r.v, r.err
}

func (f *fetcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.started:
		return c
	case <-time.After(time.Second):
		t.Fatal("fetch was not started")
		return nil
	}
}

func (f *fetcher) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.started:
		t.Fatalf("unexpected fetch with deps %v", c.deps)
	case <-time.After(20 * time.Millisecond):
	}
}

func waitFor[T any](t *testing.T, h *Hook[T], cond func(State[T]) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.State()) }, time.Second, time.Millisecond)
}

func TestHook_IdleUntilDepsSet(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)
	defer h.Close()

	f.none(t)
	assert.Equal(t, State[string]{}, h.State())
	assert.False(t, h.Refetch())
}

func TestHook_LoadsData(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	require.True(t, h.SetDeps("r1", 1))
	assert.True(t, h.State().Loading)

	c := f.next(t)
	assert.Equal(t, []any{"r1", 1}, c.deps)
	c.resolve("one")
	h.Wait()

	assert.Equal(t, State[string]{Data: "one", HasData: true}, h.State())
}

func TestHook_LatestRequestWins(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps(1)
	first := f.next(t)
	h.SetDeps(2)
	second := f.next(t)
	h.SetDeps(3)
	third := f.next(t)

	assert.True(t, first.canceled())
	assert.True(t, second.canceled())
	assert.False(t, third.canceled())

	// resolve in reverse issue order
	third.resolve("three")
	waitFor(t, h, func(s State[string]) bool { return !s.Loading })
	second.resolve("two")
	first.reject(errors.New("late failure"))
	h.Wait()

	st := h.State()
	assert.Equal(t, "three", st.Data)
	assert.NoError(t, st.Err)
	assert.False(t, st.Loading)
}

func TestHook_StaleSuccessAfterNewRequestStarted(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps(1)
	first := f.next(t)
	h.SetDeps(2)
	second := f.next(t)

	first.resolve("one")
	f.none(t)
	st := h.State()
	assert.True(t, st.Loading)
	assert.False(t, st.HasData)

	second.resolve("two")
	h.Wait()
	assert.Equal(t, "two", h.State().Data)
}

func TestHook_EqualDepsDoNotRefetch(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	opts := models.ListOptions{Page: 1, Limit: 10, Sort: "newest"}
	require.True(t, h.SetDeps(opts, "r1"))
	f.next(t).resolve("page")
	h.Wait()

	// a freshly built but equal key
	assert.False(t, h.SetDeps(models.ListOptions{Page: 1, Limit: 10, Sort: "newest"}, "r1"))
	f.none(t)

	assert.True(t, h.SetDeps(models.ListOptions{Page: 2, Limit: 10, Sort: "newest"}, "r1"))
	f.next(t).resolve("page 2")
	h.Wait()
	assert.Equal(t, "page 2", h.State().Data)
}

func TestHook_DependencyChangeKeepsDataClearsError(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps(1)
	f.next(t).resolve("one")
	h.Wait()

	h.SetDeps(2)
	f.next(t).reject(errors.New("boom"))
	h.Wait()
	require.Error(t, h.State().Err)

	h.SetDeps(3)
	st := h.State()
	assert.True(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Empty(t, st.Message)
	assert.Equal(t, "one", st.Data)

	f.next(t).resolve("three")
	h.Wait()
}

func TestHook_FailureMessages(t *testing.T) {
	t.Run("caller supplied", func(t *testing.T) {
		f := newFetcher()
		h := New[string](f.fetch, WithErrorMessage("Could not load recipes"))

		h.SetDeps(1)
		f.next(t).reject(api.NewError(http.StatusInternalServerError, "internal", "db down"))
		h.Wait()

		st := h.State()
		assert.Equal(t, "Could not load recipes", st.Message)
		assert.False(t, st.Loading)
		assert.False(t, st.HasData)
	})

	t.Run("from the error", func(t *testing.T) {
		f := newFetcher()
		h := New[string](f.fetch)

		h.SetDeps(1)
		f.next(t).reject(api.NewError(http.StatusNotFound, "not_found", "Recipe not found"))
		h.Wait()
		assert.Equal(t, "Recipe not found", h.State().Message)
	})

	t.Run("network", func(t *testing.T) {
		f := newFetcher()
		h := New[string](f.fetch)

		h.SetDeps(1)
		f.next(t).reject(api.NetworkError(errors.New("dial tcp: refused")))
		h.Wait()
		assert.Equal(t, api.DefaultNetworkMessage, h.State().Message)
	})
}

func TestHook_CancellationIsSilent(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	var mu sync.Mutex
	var updates int
	h.Subscribe(func(State[string]) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	h.SetDeps(1)
	f.next(t).reject(api.Canceled(context.Canceled))
	h.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, updates, "only the loading transition")
	assert.NoError(t, h.State().Err)
}

func TestHook_CloseStopsUpdates(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps(1)
	c := f.next(t)
	h.Close()
	assert.True(t, c.canceled())

	c.resolve("late")
	h.Wait()

	st := h.State()
	assert.False(t, st.HasData)
	assert.False(t, h.SetDeps(2))
	assert.False(t, h.Refetch())
	f.none(t)
}

func TestHook_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFetcher()
	h := New[string](f.fetch, WithContext(ctx))

	h.SetDeps(1)
	c := f.next(t)
	cancel()
	assert.True(t, c.canceled())

	c.resolve("late")
	h.Wait()
	assert.False(t, h.State().HasData)
}

func TestHook_Refetch(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps("r1")
	f.next(t).resolve("v1")
	h.Wait()

	require.True(t, h.Refetch())
	c := f.next(t)
	assert.Equal(t, "r1", c.dep(0))
	assert.Equal(t, "v1", h.State().Data)
	c.resolve("v2")
	h.Wait()
	assert.Equal(t, "v2", h.State().Data)
}

func TestHook_Update(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	assert.False(t, h.Update(func(s string) string { return s + "!" }))

	h.SetDeps(1)
	f.next(t).resolve("v")
	h.Wait()

	assert.True(t, h.Update(func(s string) string { return s + "!" }))
	assert.Equal(t, "v!", h.State().Data)
}

func TestHook_SubscribeAndUnsubscribe(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	var mu sync.Mutex
	var loading []bool
	unsubscribe := h.Subscribe(func(s State[string]) {
		mu.Lock()
		loading = append(loading, s.Loading)
		mu.Unlock()
	})

	h.SetDeps(1)
	f.next(t).resolve("v")
	h.Wait()
	unsubscribe()

	h.SetDeps(2)
	f.next(t).resolve("w")
	h.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, loading)
}

type withHidden struct {
	Page   int
	secret string
}

func TestHook_DepsWithUnexportedFields(t *testing.T) {
	f := newFetcher()
	h := New[string](f.fetch)

	h.SetDeps(withHidden{Page: 1, secret: "a"})
	f.next(t).resolve("a")
	h.Wait()

	assert.False(t, h.SetDeps(withHidden{Page: 1, secret: "a"}))
	assert.True(t, h.SetDeps(withHidden{Page: 1, secret: "b"}))
	f.next(t).resolve("b")
	h.Wait()
	assert.Equal(t, []any{withHidden{Page: 1, secret: "b"}}, h.Deps())
}
