// Package dispatch contains the cooperative scheduler that merges multiple
// event sources into one globally time-ordered stream.
package dispatch

import (
	"time"
)

// Well-known dispatch priorities. Lower values dispatch first; the broker
// runs before the bar feed so order notifications are already consistent
// when strategy code observes new bars.
const (
	PriorityBroker  = 0
	PriorityBarFeed = 1
)

// Subject is a schedulable unit of event production: a data feed, a broker,
// anything the Dispatcher drives.
type Subject interface {
	// Start is called once before the dispatch loop begins.
	Start() error

	// Stop is called once after the loop ends.
	Stop() error

	// Join blocks until background work owned by the subject finishes.
	Join() error

	// Eof reports whether the subject will never produce another event.
	Eof() bool

	// PeekDateTime returns the timestamp of the next event when it is
	// knowable in advance. Realtime subjects return ok == false; they are
	// considered ready every round.
	PeekDateTime() (time.Time, bool)

	// Dispatch produces at most one event and reports whether it did.
	Dispatch() (bool, error)

	// DispatchPriority orders subjects within one round; lower first.
	// Ties are broken by registration order.
	DispatchPriority() int
}
