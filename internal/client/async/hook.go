// Package async runs one cancellable fetch at a time per dependency key and
// exposes its lifecycle as State.
package async

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/google/go-cmp/cmp"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/logging"
)

// FetchFunc loads data for deps. It must give up when ctx is cancelled.
type FetchFunc[T any] func(ctx context.Context, deps []any) (T, error)

// State is the lifecycle of the current request.
type State[T any] struct {
	Loading bool
	Data    T
	HasData bool
	Err     error
	Message string
}

type config struct {
	parent     context.Context
	errMessage string
	logger     logging.Logger
}

type Option func(*config)

// WithErrorMessage sets the message shown for failed fetches. Without it the
// message is derived from the error.
func WithErrorMessage(msg string) Option {
	return func(c *config) { c.errMessage = msg }
}

// WithContext sets the parent of every request context. Cancelling it
// cancels the hook's requests without producing state updates.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.parent = ctx }
}

func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

type request struct {
	cancel context.CancelFunc
}

// deps may hold unexported fields; they are compared structurally too.
var depsEqual = cmp.Exporter(func(reflect.Type) bool { return true })

// Hook owns the request lifecycle for one consumer. It is safe for
// concurrent use. Only the most recently started request may write State.
type Hook[T any] struct {
	fetch FetchFunc[T]
	cfg   config

	mu      sync.Mutex
	state   State[T]
	deps    []any
	started bool
	current *request
	closed  bool
	subs    map[int]func(State[T])
	nextSub int

	wg sync.WaitGroup
}

// New returns an idle hook. Nothing is fetched until SetDeps is called.
func New[T any](fetch FetchFunc[T], opts ...Option) *Hook[T] {
	cfg := config{parent: context.Background(), logger: logging.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Hook[T]{
		fetch: fetch,
		cfg:   cfg,
		subs:  make(map[int]func(State[T])),
	}
}

// SetDeps starts a request for deps unless they are structurally equal to
// the previous ones. It reports whether a request was started.
func (h *Hook[T]) SetDeps(deps ...any) bool {
	h.mu.Lock()
	if h.closed || (h.started && cmp.Equal(h.deps, deps, depsEqual)) {
		h.mu.Unlock()
		return false
	}
	h.deps = slices.Clone(deps)
	h.started = true
	snap := h.startLocked()
	h.mu.Unlock()

	h.notify(snap)
	return true
}

// Refetch starts a new request with the current deps.
func (h *Hook[T]) Refetch() bool {
	h.mu.Lock()
	if h.closed || !h.started {
		h.mu.Unlock()
		return false
	}
	snap := h.startLocked()
	h.mu.Unlock()

	h.notify(snap)
	return true
}

func (h *Hook[T]) startLocked() State[T] {
	if h.current != nil {
		h.current.cancel()
	}

	ctx, cancel := context.WithCancel(h.cfg.parent)
	req := &request{cancel: cancel}
	h.current = req

	h.state.Loading = true
	h.state.Err = nil
	h.state.Message = ""

	deps := slices.Clone(h.deps)
	h.wg.Add(1)
	go h.run(ctx, req, deps)

	return h.state
}

func (h *Hook[T]) run(ctx context.Context, req *request, deps []any) {
	defer h.wg.Done()
	defer req.cancel()

	data, err := h.fetch(ctx, deps)

	h.mu.Lock()
	if h.closed || h.current != req || ctx.Err() != nil {
		h.mu.Unlock()
		h.cfg.logger.Debug(ctx, "discarding superseded result")
		return
	}
	if err != nil && api.IsCanceled(err) {
		h.mu.Unlock()
		return
	}

	h.current = nil
	h.state.Loading = false
	if err != nil {
		h.state.Err = err
		h.state.Message = h.message(err)
	} else {
		h.state.Data = data
		h.state.HasData = true
		h.state.Err = nil
		h.state.Message = ""
	}
	snap := h.state
	h.mu.Unlock()

	h.notify(snap)
}

func (h *Hook[T]) message(err error) string {
	if h.cfg.errMessage != "" {
		return h.cfg.errMessage
	}
	if msg := api.UserMessage(err); msg != "" {
		return msg
	}
	return api.DefaultErrorMessage
}

// Update replaces the held data with fn(data) without a request. It is a
// no-op until data has been loaded.
func (h *Hook[T]) Update(fn func(T) T) bool {
	h.mu.Lock()
	if h.closed || !h.state.HasData {
		h.mu.Unlock()
		return false
	}
	h.state.Data = fn(h.state.Data)
	snap := h.state
	h.mu.Unlock()

	h.notify(snap)
	return true
}

// Close cancels the in-flight request. No state changes happen afterwards.
func (h *Hook[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.current != nil {
		h.current.cancel()
		h.current = nil
	}
	clear(h.subs)
}

// Wait blocks until every request goroutine has returned.
func (h *Hook[T]) Wait() {
	h.wg.Wait()
}

func (h *Hook[T]) State() State[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Deps returns a copy of the current dependency key.
func (h *Hook[T]) Deps() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.deps)
}

// Subscribe registers fn for state changes. Calls happen outside the hook
// lock, from the goroutine that made the change.
func (h *Hook[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Hook[T]) notify(st State[T]) {
	h.mu.Lock()
	subs := make([]func(State[T]), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
