package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNoBars              = errors.New("bars group cannot be empty")
	ErrMismatchedTime      = errors.New("bars in a group must share one timestamp")
	ErrDuplicateInstrument = errors.New("duplicate instrument in bars group")
)

// Bars is a timestamp-synchronized snapshot of one bar per instrument.
type Bars struct {
	ts    time.Time
	items map[string]Bar
}

// NewBars builds a group from the given bars. All bars must carry exactly
// the same timestamp; a mismatch is a usage error, never a silent truncation.
func NewBars(bars ...Bar) (Bars, error) {
	if len(bars) == 0 {
		return Bars{}, ErrNoBars
	}

	ts := bars[0].TimeStamp
	items := make(map[string]Bar, len(bars))
	for _, b := range bars {
		if !b.TimeStamp.Equal(ts) {
			return Bars{}, fmt.Errorf("%w: %s has %s, expected %s",
				ErrMismatchedTime, b.Symbol, b.TimeStamp, ts)
		}
		if _, ok := items[b.Symbol]; ok {
			return Bars{}, fmt.Errorf("%w: %s", ErrDuplicateInstrument, b.Symbol)
		}
		items[b.Symbol] = b
	}

	return Bars{ts: ts, items: items}, nil
}

func MustNewBars(bars ...Bar) Bars {
	group, err := NewBars(bars...)
	if err != nil {
		panic(err)
	}
	return group
}

func (g Bars) IsEmpty() bool {
	return len(g.items) == 0
}

func (g Bars) Time() time.Time {
	return g.ts
}

// Get returns the bar for the instrument, if one is present in this round.
func (g Bars) Get(symbol string) (Bar, bool) {
	b, ok := g.items[symbol]
	return b, ok
}

func (g Bars) Len() int {
	return len(g.items)
}

// Symbols returns the instruments present, sorted for deterministic
// iteration.
func (g Bars) Symbols() []string {
	symbols := make([]string, 0, len(g.items))
	for symbol := range g.items {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
