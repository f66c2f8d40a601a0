// Package live keeps derived views of the ledger up to date for their
// subscribers.
//
// A view is a keyed computation with a dependency set. Subscribers of the
// same key share one computation. When the store changes, the writer calls
// Notify with what it touched and every intersecting view is recomputed
// once; each subscriber then holds at most one pending value, the newest.
package live

import (
	"context"
	"fmt"
	"sync"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

// AnyAccount matches every account in a Dependency or a Change.
const AnyAccount int64 = 0

// Dependency names the slice of the store a view reads. AccountID narrows
// it to one account; AnyAccount covers them all.
type Dependency struct {
	Kind      core.EntityKind
	AccountID int64
}

// Change describes a mutation: the entity kind and, when known, the
// account it touched.
type Change = Dependency

// On returns a dependency on every entity of the given kind.
func On(kind core.EntityKind) Dependency {
	return Dependency{Kind: kind, AccountID: AnyAccount}
}

// OnAccount returns a dependency on the entities of one account.
func OnAccount(kind core.EntityKind, accountID int64) Dependency {
	return Dependency{Kind: kind, AccountID: accountID}
}

func (d Dependency) intersects(c Change) bool {
	if d.Kind != c.Kind {
		return false
	}
	return d.AccountID == AnyAccount || c.AccountID == AnyAccount || d.AccountID == c.AccountID
}

// Compute produces a fresh view value from the store.
type Compute[T any] func(ctx context.Context) (T, error)

type view interface {
	dependsOn(changes []Change) bool
	refresh(ctx context.Context)
}

// Registry tracks the active views.
type Registry struct {
	mu     sync.Mutex
	views  map[string]view
	logger *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default(log.ComponentLive)
	}
	return &Registry{
		views:  make(map[string]view),
		logger: logger.WithComponent(log.ComponentLive),
	}
}

// Len reports how many views currently have subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Notify recomputes every view whose dependencies intersect changes. It
// returns after all of them hold their new value.
func (r *Registry) Notify(ctx context.Context, changes ...Change) {
	if len(changes) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	refreshed := 0
	for _, v := range r.views {
		if v.dependsOn(changes) {
			v.refresh(ctx)
			refreshed++
		}
	}
	r.logger.DebugContext(ctx, "Views refreshed", log.FieldCount, refreshed)
}

// NotifyAll recomputes every active view.
func (r *Registry) NotifyAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.views {
		v.refresh(ctx)
	}
}

// Observe subscribes to the view identified by key, creating it with deps
// and compute if no one observes it yet. The current value is computed (or
// shared) and queued on the subscription before Observe returns.
func Observe[T any](ctx context.Context, r *Registry, key string, deps []Dependency, compute Compute[T]) (*Subscription[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var e *entry[T]
	if existing, ok := r.views[key]; ok {
		typed, ok := existing.(*entry[T])
		if !ok {
			return nil, fmt.Errorf("view %q already observed with a different type", key)
		}
		e = typed
	} else {
		value, err := compute(ctx)
		if err != nil {
			return nil, fmt.Errorf("compute view %s: %w", key, err)
		}
		e = &entry[T]{
			key:      key,
			deps:     deps,
			compute:  compute,
			value:    value,
			subs:     make(map[*Subscription[T]]struct{}),
			registry: r,
		}
		r.views[key] = e
		r.logger.DebugContext(ctx, "View created", log.FieldView, key)
	}

	s := &Subscription[T]{entry: e, ch: make(chan T, 1)}
	e.mu.Lock()
	e.subs[s] = struct{}{}
	s.push(e.value)
	e.mu.Unlock()
	return s, nil
}

type entry[T any] struct {
	key      string
	deps     []Dependency
	compute  Compute[T]
	registry *Registry

	mu    sync.Mutex
	value T
	err   error
	subs  map[*Subscription[T]]struct{}
}

func (e *entry[T]) dependsOn(changes []Change) bool {
	for _, d := range e.deps {
		for _, c := range changes {
			if d.intersects(c) {
				return true
			}
		}
	}
	return false
}

// refresh recomputes the value. On failure the previous value is kept and
// the error is reported through Current.
func (e *entry[T]) refresh(ctx context.Context) {
	value, err := e.compute(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		e.registry.logger.ErrorContext(ctx, "View recompute failed", log.FieldView, e.key, log.FieldError, err)
		return
	}
	e.value = value
	e.err = nil
	for s := range e.subs {
		s.push(value)
	}
}

// Subscription receives the values of one view.
type Subscription[T any] struct {
	entry  *entry[T]
	ch     chan T
	closed bool
}

// Updates delivers the view value. Only the newest value is kept if the
// reader falls behind. The channel is closed by Close.
func (s *Subscription[T]) Updates() <-chan T {
	return s.ch
}

// Current returns the latest computed value and the error of the most
// recent recompute, if it failed.
func (s *Subscription[T]) Current() (T, error) {
	s.entry.mu.Lock()
	defer s.entry.mu.Unlock()
	return s.entry.value, s.entry.err
}

// Close stops deliveries. It is safe to call more than once. The view is
// dropped with its last subscriber.
func (s *Subscription[T]) Close() {
	e := s.entry
	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(e.subs, s)
	close(s.ch)

	if len(e.subs) == 0 {
		if current, ok := r.views[e.key]; ok && current == view(e) {
			delete(r.views, e.key)
		}
	}
}

// push replaces any undelivered value with v. Callers hold entry.mu.
func (s *Subscription[T]) push(v T) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- v:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Once reads the current value of a freshly observed view and closes the
// subscription. It suits one-shot callers such as the CLI.
func Once[T any](s *Subscription[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	defer s.Close()
	return s.Current()
}
