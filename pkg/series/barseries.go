package series

import (
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// BarSeries keeps a bounded window of bars for one instrument together with
// derived per-field price sequences, which is what indicators subscribe to.
type BarSeries struct {
	bars *Sequence[market.Bar]

	open     *Sequence[fixed.Point]
	high     *Sequence[fixed.Point]
	low      *Sequence[fixed.Point]
	close    *Sequence[fixed.Point]
	volume   *Sequence[fixed.Point]
	adjClose *Sequence[fixed.Point]

	hasAdjClose bool
}

func NewBarSeries(maxLen int, hasAdjClose bool) *BarSeries {
	s := &BarSeries{
		bars:        NewSequence[market.Bar](maxLen),
		open:        NewSequence[fixed.Point](maxLen),
		high:        NewSequence[fixed.Point](maxLen),
		low:         NewSequence[fixed.Point](maxLen),
		close:       NewSequence[fixed.Point](maxLen),
		volume:      NewSequence[fixed.Point](maxLen),
		hasAdjClose: hasAdjClose,
	}
	if hasAdjClose {
		s.adjClose = NewSequence[fixed.Point](maxLen)
	}
	return s
}

// Append adds a bar and fans its fields out to the derived sequences. The
// bar's timestamp must be strictly greater than the last appended one.
func (s *BarSeries) Append(b market.Bar) error {
	if err := s.bars.AppendWithTime(b.TimeStamp, b); err != nil {
		return err
	}

	ts := b.TimeStamp
	_ = s.open.AppendWithTime(ts, b.Open)
	_ = s.high.AppendWithTime(ts, b.High)
	_ = s.low.AppendWithTime(ts, b.Low)
	_ = s.close.AppendWithTime(ts, b.Close)
	_ = s.volume.AppendWithTime(ts, b.Volume)
	if s.hasAdjClose {
		_ = s.adjClose.AppendWithTime(ts, b.AdjClose)
	}
	return nil
}

func (s *BarSeries) Bars() *Sequence[market.Bar]      { return s.bars }
func (s *BarSeries) Open() *Sequence[fixed.Point]     { return s.open }
func (s *BarSeries) High() *Sequence[fixed.Point]     { return s.high }
func (s *BarSeries) Low() *Sequence[fixed.Point]      { return s.low }
func (s *BarSeries) Close() *Sequence[fixed.Point]    { return s.close }
func (s *BarSeries) Volume() *Sequence[fixed.Point]   { return s.volume }
func (s *BarSeries) HasAdjClose() bool                { return s.hasAdjClose }

// AdjClose is nil when the feed does not provide adjusted values.
func (s *BarSeries) AdjClose() *Sequence[fixed.Point] { return s.adjClose }

func (s *BarSeries) Len() int { return s.bars.Len() }

func (s *BarSeries) LastTime() time.Time {
	if s.bars.Len() == 0 {
		return time.Time{}
	}
	return s.bars.TimeAgo(0)
}
