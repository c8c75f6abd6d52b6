// Package broker implements the backtest execution venue: the order value
// model, commission policies and the Broker that matches pending orders
// against incoming bars with all-or-nothing cash accounting.
package broker

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/dispatch"
	"github.com/tradeloop-dev/tradeloop/pkg/event"
	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

var (
	ErrOrderNotAccepted    = errors.New("order is not in accepted state")
	ErrOrderAlreadyPending = errors.New("order was already placed")
)

// OrderUpdate is the payload of the order-updated event, fired whenever an
// order leaves the pending list.
type OrderUpdate struct {
	Broker *Broker
	Order  Order
}

type Option func(*Broker)

// WithCommission sets the fill fee policy. Defaults to NoCommission.
func WithCommission(c Commission) Option {
	return func(b *Broker) {
		b.commission = c
	}
}

// WithAdjustedValues makes all fill prices use adjusted-close scaling. The
// feed must provide adjusted values.
func WithAdjustedValues() Option {
	return func(b *Broker) {
		b.useAdjusted = true
	}
}

// Broker owns cash and share positions and matches pending orders against
// each new bar group. Fills are committed atomically: either cash, shares
// and the order's execution info all change, or nothing does. Cash can
// never go negative; an unaffordable order simply stays pending.
//
// All state is mutated only from OnBars and commitOrderExecution, both
// driven by the single dispatcher thread, so no locking is needed.
type Broker struct {
	logger  *zap.Logger
	barFeed *feed.BarFeed

	cash        fixed.Point
	shares      map[string]int64
	pending     []Order
	processing  map[Order]struct{}
	commission  Commission
	useAdjusted bool

	orderUpdated *event.Event[OrderUpdate]
}

func New(logger *zap.Logger, cash fixed.Point, barFeed *feed.BarFeed, options ...Option) *Broker {
	if cash.IsNeg() {
		panic("starting cash must not be negative")
	}

	b := &Broker{
		logger:       logger,
		barFeed:      barFeed,
		cash:         cash,
		shares:       make(map[string]int64),
		processing:   make(map[Order]struct{}),
		commission:   NoCommission{},
		orderUpdated: event.New[OrderUpdate](),
	}

	for _, option := range options {
		option(b)
	}

	if b.useAdjusted && !barFeed.HasAdjClose() {
		panic("feed does not provide adjusted values")
	}

	// Subscribing at construction time puts the broker ahead of any
	// strategy handler registered later, so fills are visible before
	// strategy code sees the same bars.
	barFeed.NewBarsEvent().Subscribe(b.OnBars)

	return b
}

// OrderUpdatedEvent fires with (broker, order) once an order fills or is
// canceled.
func (b *Broker) OrderUpdatedEvent() *event.Event[OrderUpdate] {
	return b.orderUpdated
}

func (b *Broker) Cash() fixed.Point {
	return b.cash
}

// Shares returns the position for an instrument, zero by default.
func (b *Broker) Shares(symbol string) int64 {
	return b.shares[symbol]
}

// Positions copies out all non-zero positions.
func (b *Broker) Positions() map[string]int64 {
	out := make(map[string]int64, len(b.shares))
	for symbol, qty := range b.shares {
		if qty != 0 {
			out[symbol] = qty
		}
	}
	return out
}

// PendingOrders copies out the orders still waiting to fill.
func (b *Broker) PendingOrders() []Order {
	out := make([]Order, len(b.pending))
	copy(out, b.pending)
	return out
}

// PlaceOrder submits an order for execution. The order must be accepted and
// not already pending; double submission is a usage error.
func (b *Broker) PlaceOrder(o Order) error {
	if !o.IsAccepted() {
		return fmt.Errorf("%w: %s", ErrOrderNotAccepted, o.State())
	}
	if _, inFlight := b.processing[o]; inFlight {
		return ErrOrderAlreadyPending
	}
	for _, pending := range b.pending {
		if pending == o {
			return ErrOrderAlreadyPending
		}
	}
	b.pending = append(b.pending, o)
	return nil
}

// OnBars runs one matching round: every pending order gets one execution
// attempt against the group. Orders still accepted stay pending; the rest
// leave the list and trigger the order-updated event.
func (b *Broker) OnBars(bars market.Bars) {
	snapshot := b.pending
	b.pending = nil

	// Snapshot orders leave the pending list for the round; the processing
	// set keeps PlaceOrder rejecting them while order-updated handlers run.
	for _, o := range snapshot {
		b.processing[o] = struct{}{}
	}

	for _, o := range snapshot {
		o.tryExecute(b, bars)

		if o.IsAccepted() {
			delete(b.processing, o)
			b.pending = append(b.pending, o)
			continue
		}
		delete(b.processing, o)
		b.orderUpdated.Emit(OrderUpdate{Broker: b, Order: o})
	}
}

// commitOrderExecution atomically applies a fill. It computes the signed
// cash delta and the commission, and only mutates state when the resulting
// cash stays non-negative. Returning false leaves the order pending for
// another chance on a later bar.
func (b *Broker) commitOrderExecution(o Order, price fixed.Point, quantity int64, ts time.Time) bool {
	delta := price.MulInt64(quantity)
	if o.Action() == ActionBuy {
		delta = delta.Neg()
	}

	fee := b.commission.Calculate(o, price, quantity)
	resulting := b.cash.Add(delta).Sub(fee)
	if resulting.IsNeg() {
		b.logger.Debug("not enough cash to fill order",
			zap.Uint64("order_id", o.ID()),
			zap.String("symbol", o.Symbol()),
			zap.String("price", price.String()),
			zap.Int64("quantity", quantity))
		return false
	}

	b.cash = resulting
	switch o.Action() {
	case ActionBuy:
		b.shares[o.Symbol()] += quantity
	case ActionSell, ActionSellShort:
		b.shares[o.Symbol()] -= quantity
	}

	o.setExecuted(ExecutionInfo{
		Price:      price,
		Quantity:   quantity,
		Commission: fee,
		TimeStamp:  ts,
	})
	return true
}

// Value returns cash plus the mark-to-market of every position at the
// group's closing prices. A position without a bar in the group is an
// error; the caller decides how stale marks are handled.
func (b *Broker) Value(bars market.Bars) (fixed.Point, error) {
	value := b.cash
	for symbol, qty := range b.shares {
		if qty == 0 {
			continue
		}
		bar, ok := bars.Get(symbol)
		if !ok {
			return fixed.Zero, fmt.Errorf("no bar for %s to value position", symbol)
		}
		value = value.Add(bar.ClosePrice(b.useAdjusted).MulInt64(qty))
	}
	return value, nil
}

// Subject implementation. The backtest broker does all its work inside
// OnBars; being a Subject keeps it schedulable ahead of the feed, the slot
// a live broker variant uses to drain asynchronous fill notifications.
func (b *Broker) Start() error { return nil }
func (b *Broker) Stop() error  { return nil }
func (b *Broker) Join() error  { return nil }

func (b *Broker) Eof() bool {
	return b.barFeed.Eof()
}

func (b *Broker) PeekDateTime() (time.Time, bool) {
	return time.Time{}, false
}

func (b *Broker) Dispatch() (bool, error) {
	return false, nil
}

func (b *Broker) DispatchPriority() int {
	return dispatch.PriorityBroker
}
