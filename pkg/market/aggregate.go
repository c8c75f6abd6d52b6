package market

import (
	"time"
)

// Aggregator builds period bars from a trade stream. Add returns the
// completed bar once a trade falls past the end of the bar under
// construction.
type Aggregator struct {
	symbol    string
	frequency Frequency

	current  Bar
	building bool
}

func NewAggregator(symbol string, frequency Frequency) *Aggregator {
	if frequency <= 0 {
		panic("aggregator frequency must be positive")
	}
	return &Aggregator{
		symbol:    symbol,
		frequency: frequency,
	}
}

func (a *Aggregator) Add(trade Trade) (Bar, bool) {
	var completed Bar
	var done bool

	if a.building && !trade.TimeStamp.Before(a.periodEnd()) {
		completed = a.current
		done = true
		a.building = false
	}

	if !a.building {
		a.current = Bar{
			Symbol:    a.symbol,
			TimeStamp: trade.TimeStamp.Truncate(a.frequency.Duration()),
			Frequency: a.frequency,
			Open:      trade.Price,
			High:      trade.Price,
			Low:       trade.Price,
			Close:     trade.Price,
			Volume:    trade.Size,
		}
		a.building = true
		return completed, done
	}

	if trade.Price.Gt(a.current.High) {
		a.current.High = trade.Price
	}
	if trade.Price.Lt(a.current.Low) {
		a.current.Low = trade.Price
	}
	a.current.Close = trade.Price
	a.current.Volume = a.current.Volume.Add(trade.Size)

	return completed, done
}

// Flush returns the bar under construction, if any, and resets the
// aggregator. Used at end of stream.
func (a *Aggregator) Flush() (Bar, bool) {
	if !a.building {
		return Bar{}, false
	}
	a.building = false
	return a.current, true
}

func (a *Aggregator) periodEnd() time.Time {
	return a.current.TimeStamp.Add(a.frequency.Duration())
}
