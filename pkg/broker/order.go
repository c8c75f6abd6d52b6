package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

type Action int

const (
	ActionBuy Action = iota
	ActionSell
	ActionSellShort
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	case ActionSellShort:
		return "sell-short"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type State int

const (
	StateAccepted State = iota
	StateCanceled
	StateFilled
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateCanceled:
		return "canceled"
	case StateFilled:
		return "filled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrOrderFilled = errors.New("order is already filled")

// ExecutionInfo records the economics of a fill.
type ExecutionInfo struct {
	Price      fixed.Point `json:"price"`
	Quantity   int64       `json:"quantity"`
	Commission fixed.Point `json:"commission"`
	TimeStamp  time.Time   `json:"ts"`
}

// Order is the sealed contract all order variants implement. Orders start
// accepted and end either filled or canceled; a filled order is immutable.
type Order interface {
	ID() utility.OrderID
	Symbol() string
	Action() Action
	Quantity() int64
	GoodTillCanceled() bool
	SetGoodTillCanceled(bool)
	State() State
	IsAccepted() bool
	IsFilled() bool
	IsCanceled() bool

	// ExecutionInfo is only present once the order filled.
	ExecutionInfo() (ExecutionInfo, bool)

	// Cancel transitions to canceled. Canceling a filled order is a usage
	// error.
	Cancel() error

	tryExecute(b *Broker, bars market.Bars)
	setExecuted(info ExecutionInfo)
}

type baseOrder struct {
	id       utility.OrderID
	symbol   string
	action   Action
	quantity int64
	gtc      bool

	state    State
	execInfo ExecutionInfo
	executed bool
}

func newBaseOrder(action Action, symbol string, quantity int64) baseOrder {
	if quantity <= 0 {
		panic("order quantity must be positive")
	}
	return baseOrder{
		id:       utility.NewOrderID(),
		symbol:   symbol,
		action:   action,
		quantity: quantity,
		state:    StateAccepted,
	}
}

func (o *baseOrder) ID() utility.OrderID        { return o.id }
func (o *baseOrder) Symbol() string             { return o.symbol }
func (o *baseOrder) Action() Action             { return o.action }
func (o *baseOrder) Quantity() int64            { return o.quantity }
func (o *baseOrder) GoodTillCanceled() bool     { return o.gtc }
func (o *baseOrder) SetGoodTillCanceled(v bool) { o.gtc = v }
func (o *baseOrder) State() State               { return o.state }
func (o *baseOrder) IsAccepted() bool           { return o.state == StateAccepted }
func (o *baseOrder) IsFilled() bool             { return o.state == StateFilled }
func (o *baseOrder) IsCanceled() bool           { return o.state == StateCanceled }

func (o *baseOrder) ExecutionInfo() (ExecutionInfo, bool) {
	return o.execInfo, o.executed
}

func (o *baseOrder) Cancel() error {
	if o.state == StateFilled {
		return ErrOrderFilled
	}
	o.state = StateCanceled
	return nil
}

func (o *baseOrder) setExecuted(info ExecutionInfo) {
	o.state = StateFilled
	o.execInfo = info
	o.executed = true
}

// tryFill runs the common execution flow: skip unless accepted, skip when
// the instrument has no bar this round, attempt the variant's fill rule and
// finally apply session-close expiry. The expiry check runs after the fill
// attempt so an order can still fill on the closing bar itself.
func tryFill(o Order, bars market.Bars, fill func(bar market.Bar)) {
	if !o.IsAccepted() {
		return
	}
	bar, ok := bars.Get(o.Symbol())
	if !ok {
		return
	}

	fill(bar)

	if o.IsAccepted() && !o.GoodTillCanceled() && bar.SessionClose {
		_ = o.Cancel()
	}
}

// MarketOrder fills unconditionally at the bar's open or closing price.
type MarketOrder struct {
	baseOrder
	useClose bool
}

// NewMarketOrder creates a market order. useClosingPrice selects the bar's
// close instead of its open as the fill price.
func NewMarketOrder(action Action, symbol string, quantity int64, useClosingPrice bool) *MarketOrder {
	return &MarketOrder{
		baseOrder: newBaseOrder(action, symbol, quantity),
		useClose:  useClosingPrice,
	}
}

func (o *MarketOrder) tryExecute(b *Broker, bars market.Bars) {
	tryFill(o, bars, func(bar market.Bar) {
		price := bar.OpenPrice(b.useAdjusted)
		if o.useClose {
			price = bar.ClosePrice(b.useAdjusted)
		}
		b.commitOrderExecution(o, price, o.quantity, bars.Time())
	})
}

// LimitOrder fills at exactly the limit price whenever the bar's range
// includes it, boundaries inclusive. No slippage is modeled.
type LimitOrder struct {
	baseOrder
	limit fixed.Point
}

func NewLimitOrder(action Action, symbol string, limit fixed.Point, quantity int64) *LimitOrder {
	return &LimitOrder{
		baseOrder: newBaseOrder(action, symbol, quantity),
		limit:     limit,
	}
}

func (o *LimitOrder) LimitPrice() fixed.Point { return o.limit }

func (o *LimitOrder) tryExecute(b *Broker, bars market.Bars) {
	tryFill(o, bars, func(bar market.Bar) {
		low := bar.LowPrice(b.useAdjusted)
		high := bar.HighPrice(b.useAdjusted)
		if o.limit.Gte(low) && o.limit.Lte(high) {
			b.commitOrderExecution(o, o.limit, o.quantity, bars.Time())
		}
	})
}

// StopOrder fills at the stop price once the bar's range crosses it: a buy
// stop triggers when the high reaches the stop, a sell stop when the low
// does.
type StopOrder struct {
	baseOrder
	stop fixed.Point
}

func NewStopOrder(action Action, symbol string, stop fixed.Point, quantity int64) *StopOrder {
	return &StopOrder{
		baseOrder: newBaseOrder(action, symbol, quantity),
		stop:      stop,
	}
}

func (o *StopOrder) StopPrice() fixed.Point { return o.stop }

func (o *StopOrder) tryExecute(b *Broker, bars market.Bars) {
	tryFill(o, bars, func(bar market.Bar) {
		triggered := false
		if o.action == ActionBuy {
			triggered = bar.HighPrice(b.useAdjusted).Gte(o.stop)
		} else {
			triggered = bar.LowPrice(b.useAdjusted).Lte(o.stop)
		}
		if triggered {
			b.commitOrderExecution(o, o.stop, o.quantity, bars.Time())
		}
	})
}

// ExecuteIfFilled chains two orders: the dependent order only becomes
// eligible once the independent order filled, and is canceled if the
// independent order is canceled. The dependent is never submitted to the
// pending list on its own; the wrapper is.
type ExecuteIfFilled struct {
	dependent   Order
	independent Order
}

func NewExecuteIfFilled(dependent, independent Order) *ExecuteIfFilled {
	return &ExecuteIfFilled{
		dependent:   dependent,
		independent: independent,
	}
}

func (o *ExecuteIfFilled) Dependent() Order   { return o.dependent }
func (o *ExecuteIfFilled) Independent() Order { return o.independent }

func (o *ExecuteIfFilled) ID() utility.OrderID        { return o.dependent.ID() }
func (o *ExecuteIfFilled) Symbol() string             { return o.dependent.Symbol() }
func (o *ExecuteIfFilled) Action() Action             { return o.dependent.Action() }
func (o *ExecuteIfFilled) Quantity() int64            { return o.dependent.Quantity() }
func (o *ExecuteIfFilled) GoodTillCanceled() bool     { return o.dependent.GoodTillCanceled() }
func (o *ExecuteIfFilled) SetGoodTillCanceled(v bool) { o.dependent.SetGoodTillCanceled(v) }
func (o *ExecuteIfFilled) State() State               { return o.dependent.State() }
func (o *ExecuteIfFilled) IsAccepted() bool           { return o.dependent.IsAccepted() }
func (o *ExecuteIfFilled) IsFilled() bool             { return o.dependent.IsFilled() }
func (o *ExecuteIfFilled) IsCanceled() bool           { return o.dependent.IsCanceled() }

func (o *ExecuteIfFilled) ExecutionInfo() (ExecutionInfo, bool) {
	return o.dependent.ExecutionInfo()
}

func (o *ExecuteIfFilled) Cancel() error {
	return o.dependent.Cancel()
}

func (o *ExecuteIfFilled) tryExecute(b *Broker, bars market.Bars) {
	switch {
	case o.independent.IsFilled():
		o.dependent.tryExecute(b, bars)
	case o.independent.IsCanceled():
		if !o.dependent.IsFilled() {
			_ = o.dependent.Cancel()
		}
	}
}

func (o *ExecuteIfFilled) setExecuted(info ExecutionInfo) {
	o.dependent.setExecuted(info)
}
