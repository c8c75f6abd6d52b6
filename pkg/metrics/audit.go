// Package metrics observes a running backtest and distills it into a
// performance report. The audit subscribes to feed and broker events, so
// strategies need no bookkeeping of their own.
package metrics

import (
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/broker"
	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

const equitySnapshotInterval = time.Minute

type equitySnapshot struct {
	TimeStamp time.Time
	Value     fixed.Point
}

// lot is an open slice of a position awaiting its closing fill. Quantity is
// positive for long lots, negative for short.
type lot struct {
	quantity int64
	price    fixed.Point
	feeShare fixed.Point
	openTime time.Time
}

type closedTrade struct {
	Symbol    string
	OpenTime  time.Time
	CloseTime time.Time
	Quantity  int64
	NetProfit fixed.Point
}

// Audit accumulates equity snapshots and round-trip trades. Fills pair FIFO
// against the open lots of their instrument; a fill against a flat or
// same-direction book opens new lots instead.
type Audit struct {
	b *broker.Broker

	equities []equitySnapshot
	trades   []closedTrade
	openLots map[string][]lot

	totalCommission fixed.Point
}

func NewAudit(barFeed *feed.BarFeed, b *broker.Broker) *Audit {
	a := &Audit{
		b:        b,
		openLots: make(map[string][]lot),
	}
	barFeed.NewBarsEvent().Subscribe(a.onBars)
	b.OrderUpdatedEvent().Subscribe(a.onOrderUpdated)
	return a
}

func (a *Audit) onBars(bars market.Bars) {
	value, err := a.b.Value(bars)
	if err != nil {
		return
	}
	ts := bars.Time()
	if len(a.equities) == 0 || ts.Sub(a.equities[len(a.equities)-1].TimeStamp) >= equitySnapshotInterval {
		a.equities = append(a.equities, equitySnapshot{TimeStamp: ts, Value: value})
	}
}

func (a *Audit) onOrderUpdated(update broker.OrderUpdate) {
	o := update.Order
	info, ok := o.ExecutionInfo()
	if !ok {
		return
	}

	a.totalCommission = a.totalCommission.Add(info.Commission)

	signed := info.Quantity
	if o.Action() != broker.ActionBuy {
		signed = -signed
	}
	a.applyFill(o.Symbol(), signed, info)
}

// applyFill consumes opposing lots FIFO and opens a new lot with whatever
// quantity remains.
func (a *Audit) applyFill(symbol string, signed int64, info broker.ExecutionInfo) {
	feeShare := info.Commission.DivInt64(info.Quantity)
	lots := a.openLots[symbol]

	remaining := signed
	for remaining != 0 && len(lots) > 0 && opposes(lots[0].quantity, remaining) {
		open := &lots[0]

		matched := min64(abs64(open.quantity), abs64(remaining))

		// Long lots profit when price rises, short lots when it falls.
		diff := info.Price.Sub(open.price)
		if open.quantity < 0 {
			diff = diff.Neg()
		}
		fees := open.feeShare.Add(feeShare).MulInt64(matched)

		a.trades = append(a.trades, closedTrade{
			Symbol:    symbol,
			OpenTime:  open.openTime,
			CloseTime: info.TimeStamp,
			Quantity:  matched,
			NetProfit: diff.MulInt64(matched).Sub(fees),
		})

		if open.quantity > 0 {
			open.quantity -= matched
			remaining += matched
		} else {
			open.quantity += matched
			remaining -= matched
		}
		if open.quantity == 0 {
			lots = lots[1:]
		}
	}

	if remaining != 0 {
		lots = append(lots, lot{
			quantity: remaining,
			price:    info.Price,
			feeShare: feeShare,
			openTime: info.TimeStamp,
		})
	}

	a.openLots[symbol] = lots
}

func opposes(a, b int64) bool {
	return (a > 0) != (b > 0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
