// Package market holds the value types flowing through the system: single
// instrument OHLCV bars, trades, quotes and timestamp-synchronized bar
// groups.
package market

import (
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Frequency tags the sampling period of a bar, in seconds. FrequencyTrade
// marks bars built from individual trades.
type Frequency int64

const (
	FrequencyTrade  Frequency = -1
	FrequencySecond Frequency = 1
	FrequencyMinute Frequency = 60
	FrequencyHour   Frequency = 60 * 60
	FrequencyDay    Frequency = 24 * 60 * 60
	FrequencyWeek   Frequency = 7 * 24 * 60 * 60
	FrequencyMonth  Frequency = 30 * 24 * 60 * 60
)

func (f Frequency) Duration() time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f) * time.Second
}

// Bar is one OHLCV sample for one instrument at one timestamp. AdjClose is
// only meaningful when HasAdjClose is set; accessors taking an adjusted flag
// must not be asked for adjusted values otherwise.
type Bar struct {
	Symbol       string      `json:"symbol,omitempty"`
	TimeStamp    time.Time   `json:"ts"`
	Frequency    Frequency   `json:"frequency"`
	Open         fixed.Point `json:"open"`
	High         fixed.Point `json:"high"`
	Low          fixed.Point `json:"low"`
	Close        fixed.Point `json:"close"`
	Volume       fixed.Point `json:"volume"`
	AdjClose     fixed.Point `json:"adj_close,omitempty"`
	HasAdjClose  bool        `json:"has_adj_close,omitempty"`
	SessionClose bool        `json:"session_close,omitempty"`
}

// OpenPrice returns the open, scaled by the adjusted-close ratio when
// adjusted is set.
func (b Bar) OpenPrice(adjusted bool) fixed.Point {
	return b.adjust(b.Open, adjusted)
}

func (b Bar) HighPrice(adjusted bool) fixed.Point {
	return b.adjust(b.High, adjusted)
}

func (b Bar) LowPrice(adjusted bool) fixed.Point {
	return b.adjust(b.Low, adjusted)
}

func (b Bar) ClosePrice(adjusted bool) fixed.Point {
	if adjusted {
		b.mustHaveAdjClose()
		return b.AdjClose
	}
	return b.Close
}

func (b Bar) adjust(price fixed.Point, adjusted bool) fixed.Point {
	if !adjusted {
		return price
	}
	b.mustHaveAdjClose()
	return price.Mul(b.AdjClose).Div(b.Close)
}

func (b Bar) mustHaveAdjClose() {
	if !b.HasAdjClose {
		panic("adjusted close is not available for this bar")
	}
}
