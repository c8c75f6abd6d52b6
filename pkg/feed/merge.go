package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
)

// MergeSource aligns several historical sources into one stream of
// synchronized groups: each round it takes the smallest buffered timestamp
// and merges every child group carrying exactly that timestamp. Instruments
// whose next bar lies further in the future simply sit out the round.
//
// Children must be deterministic; a child returning ErrNoData propagates it
// and stalls the merge for the round.
type MergeSource struct {
	children []Source
	buffered []market.Bars
	done     []bool
}

func NewMergeSource(children ...Source) *MergeSource {
	return &MergeSource{
		children: children,
		buffered: make([]market.Bars, len(children)),
		done:     make([]bool, len(children)),
	}
}

func (m *MergeSource) Open() error {
	for i, child := range m.children {
		if err := child.Open(); err != nil {
			return fmt.Errorf("merge child %d open: %w", i, err)
		}
	}
	return nil
}

func (m *MergeSource) Close() error {
	var firstErr error
	for _, child := range m.children {
		if err := child.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MergeSource) NextBars() (market.Bars, error) {
	if err := m.fill(); err != nil {
		return market.Bars{}, err
	}

	smallest, ok := m.smallestBuffered()
	if !ok {
		return market.Bars{}, ErrEOF
	}

	var bars []market.Bar
	for i := range m.children {
		group := m.buffered[i]
		if group.IsEmpty() || !group.Time().Equal(smallest) {
			continue
		}
		for _, symbol := range group.Symbols() {
			b, _ := group.Get(symbol)
			bars = append(bars, b)
		}
		m.buffered[i] = market.Bars{}
	}

	return market.NewBars(bars...)
}

func (m *MergeSource) PeekTime() (time.Time, bool) {
	if err := m.fill(); err != nil {
		return time.Time{}, false
	}
	return m.smallestBuffered()
}

func (m *MergeSource) fill() error {
	for i, child := range m.children {
		if m.done[i] || !m.buffered[i].IsEmpty() {
			continue
		}

		group, err := child.NextBars()
		switch {
		case err == nil:
			m.buffered[i] = group
		case errors.Is(err, ErrEOF):
			m.done[i] = true
		default:
			return err
		}
	}
	return nil
}

func (m *MergeSource) smallestBuffered() (time.Time, bool) {
	var smallest time.Time
	have := false
	for _, group := range m.buffered {
		if group.IsEmpty() {
			continue
		}
		if !have || group.Time().Before(smallest) {
			smallest = group.Time()
			have = true
		}
	}
	return smallest, have
}
