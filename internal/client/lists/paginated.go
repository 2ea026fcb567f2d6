package lists

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/async"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// ErrLoginRequired is recorded when a mutation needs a logged in user.
var ErrLoginRequired = errors.New("login required")

// Keyed items can be found in a list by identity.
type Keyed interface {
	Key() string
}

// Status is the list state machine: Idle, then Loading, then Loaded or
// Errored, and back to Loading on every key change.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Loader fetches one page of resource.
type Loader[R any, T any] func(ctx context.Context, resource R, opts models.ListOptions) (*models.Page[T], error)

// View is a snapshot of a paginated list.
type View[T any] struct {
	Status     Status
	Items      []T
	Pagination models.Pagination
	Err        error
	Message    string
}

// Paginated drives a paged list of T belonging to resource R.
type Paginated[R any, T Keyed] struct {
	hook *async.Hook[models.Page[T]]

	mu       sync.Mutex
	resource R
	opts     models.ListOptions
	loaded   bool
	mutErr   error
}

func NewPaginated[R any, T Keyed](load Loader[R, T], resource R, opts models.ListOptions, hookOpts ...async.Option) *Paginated[R, T] {
	fetch := func(ctx context.Context, deps []any) (models.Page[T], error) {
		page, err := load(ctx, deps[0].(R), deps[1].(models.ListOptions))
		if err != nil {
			return models.Page[T]{}, err
		}
		return *page, nil
	}
	return &Paginated[R, T]{
		hook:     async.New[models.Page[T]](fetch, hookOpts...),
		resource: resource,
		opts:     normalize(opts),
	}
}

func normalize(o models.ListOptions) models.ListOptions {
	def := models.DefaultListOptions()
	if o.Page < 1 {
		o.Page = def.Page
	}
	if o.Limit < 1 {
		o.Limit = def.Limit
	}
	if o.Sort == "" {
		o.Sort = def.Sort
	}
	return o
}

// Load starts the first fetch. Later calls are no-ops unless the key changed.
func (p *Paginated[R, T]) Load() bool {
	p.mu.Lock()
	p.loaded = true
	r, o := p.resource, p.opts
	p.mu.Unlock()
	return p.hook.SetDeps(r, o)
}

func (p *Paginated[R, T]) change(fn func()) bool {
	p.mu.Lock()
	fn()
	p.opts = normalize(p.opts)
	p.mutErr = nil
	loaded := p.loaded
	r, o := p.resource, p.opts
	p.mu.Unlock()

	if !loaded {
		return false
	}
	return p.hook.SetDeps(r, o)
}

func (p *Paginated[R, T]) SetPage(page int) bool {
	return p.change(func() { p.opts.Page = page })
}

// SetLimit changes the page size and goes back to the first page.
func (p *Paginated[R, T]) SetLimit(limit int) bool {
	return p.change(func() {
		p.opts.Limit = limit
		p.opts.Page = 1
	})
}

// SetSort changes the order and goes back to the first page.
func (p *Paginated[R, T]) SetSort(sort string) bool {
	return p.change(func() {
		p.opts.Sort = sort
		p.opts.Page = 1
	})
}

// SetResource switches to another resource, on its first page.
func (p *Paginated[R, T]) SetResource(r R) bool {
	return p.change(func() {
		p.resource = r
		p.opts.Page = 1
	})
}

// NextPage moves forward when the last loaded page says there is more.
func (p *Paginated[R, T]) NextPage() bool {
	pg := p.hook.State().Data.Pagination
	if !pg.HasNext() {
		return false
	}
	return p.SetPage(p.Options().Page + 1)
}

func (p *Paginated[R, T]) PrevPage() bool {
	page := p.Options().Page
	if page <= 1 {
		return false
	}
	return p.SetPage(page - 1)
}

func (p *Paginated[R, T]) Options() models.ListOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

func (p *Paginated[R, T]) Resource() R {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resource
}

// Refetch reloads the current page and forgets the last mutation error.
func (p *Paginated[R, T]) Refetch() bool {
	p.setErr(nil)
	return p.hook.Refetch()
}

func (p *Paginated[R, T]) View() View[T] {
	st := p.hook.State()

	p.mu.Lock()
	loaded, mutErr := p.loaded, p.mutErr
	p.mu.Unlock()

	v := View[T]{
		Items:      slices.Clone(st.Data.Items),
		Pagination: st.Data.Pagination,
		Err:        st.Err,
		Message:    st.Message,
	}
	switch {
	case !loaded:
		v.Status = StatusIdle
	case st.Loading:
		v.Status = StatusLoading
	case st.Err != nil:
		v.Status = StatusErrored
	case st.HasData:
		v.Status = StatusLoaded
	default:
		v.Status = StatusLoading
	}
	if mutErr != nil {
		v.Err = mutErr
		v.Message = api.UserMessage(mutErr)
	}
	return v
}

// Err returns the last mutation error since the list was last reloaded or
// moved, or the load error.
func (p *Paginated[R, T]) Err() error {
	p.mu.Lock()
	mutErr := p.mutErr
	p.mu.Unlock()
	if mutErr != nil {
		return mutErr
	}
	return p.hook.State().Err
}

func (p *Paginated[R, T]) setErr(err error) {
	p.mu.Lock()
	p.mutErr = err
	p.mu.Unlock()
}

// record stores a mutation error unless it is a cancellation.
func (p *Paginated[R, T]) record(err error) {
	if api.IsCanceled(err) {
		return
	}
	p.setErr(err)
}

// Find returns the held item with key id.
func (p *Paginated[R, T]) Find(id string) (T, bool) {
	for _, it := range p.hook.State().Data.Items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Prepend puts item first in the held page and counts it in the totals.
func (p *Paginated[R, T]) Prepend(item T) bool {
	return p.hook.Update(func(pg models.Page[T]) models.Page[T] {
		pg.Items = append([]T{item}, pg.Items...)
		pg.Pagination = pg.Pagination.WithTotal(pg.Pagination.TotalItems + 1)
		return pg
	})
}

// Replace swaps the held item with key id for item.
func (p *Paginated[R, T]) Replace(id string, item T) bool {
	replaced := false
	p.hook.Update(func(pg models.Page[T]) models.Page[T] {
		i := slices.IndexFunc(pg.Items, func(it T) bool { return it.Key() == id })
		if i < 0 {
			return pg
		}
		pg.Items = slices.Clone(pg.Items)
		pg.Items[i] = item
		replaced = true
		return pg
	})
	return replaced
}

// Remove drops the held item with key id and takes it out of the totals.
func (p *Paginated[R, T]) Remove(id string) bool {
	removed := false
	p.hook.Update(func(pg models.Page[T]) models.Page[T] {
		n := len(pg.Items)
		pg.Items = slices.DeleteFunc(slices.Clone(pg.Items), func(it T) bool { return it.Key() == id })
		if len(pg.Items) == n {
			return pg
		}
		removed = true
		pg.Pagination = pg.Pagination.WithTotal(pg.Pagination.TotalItems - 1)
		return pg
	})
	return removed
}

// Subscribe reports every change of the list.
func (p *Paginated[R, T]) Subscribe(fn func(View[T])) (unsubscribe func()) {
	return p.hook.Subscribe(func(async.State[models.Page[T]]) { fn(p.View()) })
}

// Wait blocks until in-flight loads have returned.
func (p *Paginated[R, T]) Wait() { p.hook.Wait() }

// Close cancels the in-flight load and stops updates.
func (p *Paginated[R, T]) Close() { p.hook.Close() }
