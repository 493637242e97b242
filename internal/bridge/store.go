package bridge

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Committer is the only entity capability the store depends on.
// A rejected update is reported by returning false, never by panicking.
type Committer[D any] interface {
	CommitUpdate(ctx context.Context, value D) bool
}

// Subscriber receives the store's value on subscribe and on every notified Set.
// Registrations are keyed by the Subscriber value itself, so implementations
// must be comparable (pointer receivers are the usual choice).
type Subscriber[D any] interface {
	Notify(value D)
}

// Unsubscriber removes one registration. Calling it more than once is a no-op.
type Unsubscriber func()

// funcSubscriber gives a function value a pointer identity.
type funcSubscriber[D any] struct {
	fn func(D)
}

func (f *funcSubscriber[D]) Notify(value D) { f.fn(value) }

// registration is one entry in the subscriber table.
// removed is guarded by Store.mu.
type registration[D any] struct {
	sub     Subscriber[D]
	unsub   Unsubscriber
	removed bool
}

// Store is the bridging store for one entity and one UI attachment.
//
// Thread-safety: all methods are safe for concurrent use. Subscribers are
// always called without the internal lock held, so they may call back into
// the store. Concurrent Sets resolve in call order: the value of the last
// Set to start wins, provided the entity applies commits in the order they
// arrive.
type Store[D any] struct {
	entity   Committer[D]
	policy   NotifyPolicy
	observer Observer

	mu        sync.Mutex
	current   D
	order     []*registration[D] // registration order
	index     map[Subscriber[D]]*registration[D]
	destroyed bool
	notifying bool   // a fan-out is in flight
	pending   []D    // notified values awaiting delivery, FIFO
	tickets   uint64 // last ticket issued to a Set
	queued    uint64 // ticket of the newest value appended to pending
}

// New creates a store whose current value is initial.
// It does not read from entity; entity is only used for later commits.
func New[D any](initial D, entity Committer[D], opts ...Option) *Store[D] {
	o := options{policy: NotifyForcedOnly, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[D]{
		entity:   entity,
		policy:   o.policy,
		observer: o.observer,
		current:  initial,
		index:    make(map[Subscriber[D]]*registration[D]),
	}
}

// Policy returns the store's notification policy.
func (s *Store[D]) Policy() NotifyPolicy {
	return s.policy
}

// Get returns the current value.
func (s *Store[D]) Get() D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Len returns the number of live registrations.
func (s *Store[D]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Destroyed reports whether Destroy has been called.
func (s *Store[D]) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Set commits value through the entity and, if the policy allows, makes it
// the current value and notifies every subscriber with it.
//
// The commit is attempted on every call, including forced ones.
// A rejected commit is not an error.
//
// Each call takes a ticket before committing. A value whose notification
// is ready after a later-ticketed value was already queued is dropped, so
// concurrent or nested Sets never leave an older value current.
func (s *Store[D]) Set(ctx context.Context, value D, force bool) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.tickets++
	ticket := s.tickets
	s.mu.Unlock()

	ok := s.entity.CommitUpdate(ctx, value)
	s.observer.Committed(ok)

	if !s.policy.shouldNotify(ok, force) {
		slog.Debug("store set skipped",
			"commit_ok", ok,
			"force", force,
			"policy", s.policy.String(),
		)
		s.observer.Skipped()
		return nil
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	if ticket < s.queued {
		superseded := s.queued
		s.mu.Unlock()
		slog.Debug("store set superseded", "ticket", ticket, "by", superseded)
		s.observer.Skipped()
		return nil
	}
	s.queued = ticket
	s.pending = append(s.pending, value)
	if s.notifying {
		// The in-flight caller delivers it after the current fan-out.
		s.mu.Unlock()
		return nil
	}
	s.notifying = true
	s.mu.Unlock()

	s.drain()
	return nil
}

// drain delivers pending values in order until the queue is empty.
// Called by exactly one goroutine at a time (the one that set notifying).
func (s *Store[D]) drain() {
	completed := false
	defer func() {
		if completed {
			return
		}
		// A subscriber panicked; reset so the store stays usable.
		s.mu.Lock()
		s.notifying = false
		s.pending = nil
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.pending = nil
			s.mu.Unlock()
			completed = true
			return
		}

		next := s.pending[0]
		var zero D
		s.pending[0] = zero
		s.pending = s.pending[1:]

		s.current = next
		regs := make([]*registration[D], len(s.order))
		copy(regs, s.order)
		s.mu.Unlock()

		delivered := 0
		for _, reg := range regs {
			if !s.live(reg) {
				continue
			}
			reg.sub.Notify(next)
			delivered++
		}
		s.observer.Notified(delivered)
	}
}

func (s *Store[D]) live(reg *registration[D]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !reg.removed
}

// Update is Set(ctx, fn(current), false).
func (s *Store[D]) Update(ctx context.Context, fn func(D) D) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	cur := s.current
	s.mu.Unlock()

	return s.Set(ctx, fn(cur), false)
}

// Subscribe registers h and calls it synchronously with the current value
// before returning.
//
// Subscribing a handler that is already registered replaces its entry in
// place (same notification position); it never creates a duplicate. The
// returned Unsubscriber removes exactly the registration created by this
// call, so an unsubscriber from an earlier, replaced registration is a no-op.
func (s *Store[D]) Subscribe(h Subscriber[D]) (Unsubscriber, error) {
	if h == nil {
		return nil, ErrNilSubscriber
	}
	if !reflect.TypeOf(h).Comparable() {
		return nil, ErrUnkeyableSubscriber
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, ErrDestroyed
	}

	reg := &registration[D]{sub: h}
	var once sync.Once
	reg.unsub = func() {
		once.Do(func() { s.remove(reg) })
	}

	if prev, ok := s.index[h]; ok {
		prev.removed = true
		for i, r := range s.order {
			if r == prev {
				s.order[i] = reg
				break
			}
		}
	} else {
		s.order = append(s.order, reg)
	}
	s.index[h] = reg
	cur := s.current
	s.mu.Unlock()

	h.Notify(cur)

	return reg.unsub, nil
}

// SubscribeFunc subscribes a function. Each call registers a new identity,
// so the same function value subscribed twice receives two notifications.
func (s *Store[D]) SubscribeFunc(fn func(D)) (Unsubscriber, error) {
	if fn == nil {
		return nil, ErrNilSubscriber
	}
	return s.Subscribe(&funcSubscriber[D]{fn: fn})
}

// remove drops reg from the table if it is still present.
func (s *Store[D]) remove(reg *registration[D]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg.removed {
		return
	}
	reg.removed = true

	if s.index[reg.sub] == reg {
		delete(s.index, reg.sub)
	}
	for i, r := range s.order {
		if r == reg {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Destroy invokes every registration's unsubscriber and marks the store
// destroyed. The current value is kept. Calling Destroy twice is a no-op.
func (s *Store[D]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	regs := make([]*registration[D], len(s.order))
	copy(regs, s.order)
	s.pending = nil
	s.mu.Unlock()

	for _, reg := range regs {
		reg.unsub()
	}
	slog.Debug("store destroyed", "subscribers", len(regs))
}
