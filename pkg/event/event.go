// Package event provides a small multicast notification primitive. An Event
// holds an ordered set of subscribers and delivers each emitted value to all
// of them, in subscription order.
package event

import (
	"sync"
)

// Subscription identifies one subscribed handler. It is the token passed to
// Unsubscribe; Go function values are not comparable, so identity lives here
// rather than in the handler itself.
type Subscription struct {
	id uint64
}

type entry[T any] struct {
	sub *Subscription
	fn  func(T)
}

// Event is a reentrancy-safe multicast. Emit snapshots the subscriber list
// before calling out, so handlers may subscribe or unsubscribe during
// delivery; such changes only affect the next Emit.
type Event[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry[T]
}

func New[T any]() *Event[T] {
	return &Event[T]{}
}

// Subscribe appends the handler to the delivery list and returns its token.
// Handlers are invoked in subscription order; a handler removed and added
// again moves to the tail.
func (e *Event[T]) Subscribe(fn func(T)) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	sub := &Subscription{id: e.nextID}
	e.entries = append(e.entries, entry[T]{sub: sub, fn: fn})
	return sub
}

// Unsubscribe removes the handler identified by sub. Removing a token that
// is not subscribed is a no-op.
func (e *Event[T]) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, ent := range e.entries {
		if ent.sub == sub {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			return
		}
	}
}

// Emit delivers v to every handler subscribed at the time of the call.
// Handler panics are not recovered; a broken handler fails the run loudly.
func (e *Event[T]) Emit(v T) {
	e.mu.Lock()
	snapshot := make([]entry[T], len(e.entries))
	copy(snapshot, e.entries)
	e.mu.Unlock()

	for _, ent := range snapshot {
		ent.fn(v)
	}
}

func (e *Event[T]) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}
