package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/event"
)

const (
	stateNotRunning int32 = iota
	stateRunning
	stateStopped
)

var ErrAlreadyRunning = errors.New("dispatcher is already running")

type registration struct {
	subject Subject
	order   int
}

// Dispatcher drives a set of Subjects to completion. Each round it selects
// the smallest known next timestamp among the historical subjects and
// advances every subject that is due (realtime subjects are always due),
// visiting them by ascending priority with registration order breaking ties.
//
// The loop is single threaded: one Dispatch call runs to completion before
// the next subject is considered, which makes backtests reproducible.
type Dispatcher struct {
	logger *zap.Logger

	registrations []registration
	nextOrder     int

	state       atomic.Int32
	stopOnce    sync.Once
	stopC       chan struct{}
	currentTime time.Time

	startEvent *event.Event[struct{}]
	idleEvent  *event.Event[struct{}]
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		stopC:      make(chan struct{}),
		startEvent: event.New[struct{}](),
		idleEvent:  event.New[struct{}](),
	}
}

// StartEvent fires once, after all subjects started and before the first
// round.
func (d *Dispatcher) StartEvent() *event.Event[struct{}] {
	return d.startEvent
}

// IdleEvent fires on rounds where no subject produced an event.
func (d *Dispatcher) IdleEvent() *event.Event[struct{}] {
	return d.idleEvent
}

// CurrentTime is the timestamp of the most recent historical round.
func (d *Dispatcher) CurrentTime() time.Time {
	return d.currentTime
}

// AddSubject registers a subject. Subjects are visited sorted by
// DispatchPriority ascending; equal priorities keep registration order.
func (d *Dispatcher) AddSubject(s Subject) error {
	if d.state.Load() != stateNotRunning {
		return ErrAlreadyRunning
	}

	d.registrations = append(d.registrations, registration{subject: s, order: d.nextOrder})
	d.nextOrder++

	sort.SliceStable(d.registrations, func(i, j int) bool {
		pi := d.registrations[i].subject.DispatchPriority()
		pj := d.registrations[j].subject.DispatchPriority()
		if pi != pj {
			return pi < pj
		}
		return d.registrations[i].order < d.registrations[j].order
	})
	return nil
}

// Stop requests the loop to exit at the next round boundary. In-flight
// Dispatch calls complete; this is cooperative, not preemptive.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopC)
	})
}

// Run executes the dispatch loop until every subject reports Eof, Stop is
// called, or the context is canceled. Errors from subjects and panics from
// handlers propagate; a broken backtest fails loudly instead of silently
// producing wrong numbers.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(stateNotRunning, stateRunning) {
		return ErrAlreadyRunning
	}
	defer d.state.Store(stateStopped)

	for i, reg := range d.registrations {
		if err := reg.subject.Start(); err != nil {
			d.shutdownSubjects(d.registrations[:i])
			return fmt.Errorf("subject start: %w", err)
		}
	}
	defer d.shutdownSubjects(d.registrations)

	d.startEvent.Emit(struct{}{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stopC:
			return nil
		default:
		}

		eof, dispatched, err := d.dispatch()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}
		if !dispatched {
			d.idleEvent.Emit(struct{}{})
		}
	}
}

// dispatch runs one round. The round's reference timestamp is the minimum
// PeekDateTime over all live historical subjects; realtime subjects always
// get a Dispatch call.
func (d *Dispatcher) dispatch() (eof bool, dispatched bool, err error) {
	var smallest time.Time
	haveSmallest := false

	for _, reg := range d.registrations {
		s := reg.subject
		if s.Eof() {
			continue
		}
		if t, known := s.PeekDateTime(); known {
			if !haveSmallest || t.Before(smallest) {
				smallest = t
				haveSmallest = true
			}
		}
	}

	eof = true
	for _, reg := range d.registrations {
		s := reg.subject
		if s.Eof() {
			continue
		}
		eof = false

		t, known := s.PeekDateTime()
		if known && haveSmallest && !t.Equal(smallest) {
			continue
		}

		ok, derr := s.Dispatch()
		if derr != nil {
			return false, dispatched, derr
		}
		dispatched = dispatched || ok
	}

	if haveSmallest {
		d.currentTime = smallest
	}
	return eof, dispatched, nil
}

func (d *Dispatcher) shutdownSubjects(regs []registration) {
	for _, reg := range regs {
		if err := reg.subject.Stop(); err != nil {
			d.logger.Warn("subject stop failed", zap.Error(err))
		}
	}
	for _, reg := range regs {
		if err := reg.subject.Join(); err != nil {
			d.logger.Warn("subject join failed", zap.Error(err))
		}
	}
}
