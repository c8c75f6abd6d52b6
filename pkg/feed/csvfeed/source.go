// Package csvfeed loads daily-style OHLCV files into a feed source. Rows
// are mapped by header name, so column order does not matter.
package csvfeed

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

const defaultDateLayout = "2006-01-02"

type row struct {
	Date     string      `csv:"Date"`
	Open     fixed.Point `csv:"Open"`
	High     fixed.Point `csv:"High"`
	Low      fixed.Point `csv:"Low"`
	Close    fixed.Point `csv:"Close"`
	Volume   fixed.Point `csv:"Volume"`
	AdjClose fixed.Point `csv:"Adj Close"`
}

type Option func(*Source)

// WithDateLayout sets the time.Parse layout for the Date column.
func WithDateLayout(layout string) Option {
	return func(s *Source) {
		s.layout = layout
	}
}

// WithAdjClose declares that the file carries an "Adj Close" column.
func WithAdjClose() Option {
	return func(s *Source) {
		s.hasAdjClose = true
	}
}

// WithFrequency overrides the default daily frequency tag.
func WithFrequency(frequency market.Frequency) Option {
	return func(s *Source) {
		s.frequency = frequency
	}
}

// Source reads one instrument's bars from a CSV file. The whole file is
// loaded and sorted at Open; serving is sequential afterwards.
type Source struct {
	path   string
	symbol string

	layout      string
	frequency   market.Frequency
	hasAdjClose bool

	bars []market.Bar
	idx  int
}

func NewSource(path, symbol string, options ...Option) *Source {
	s := &Source{
		path:      path,
		symbol:    symbol,
		layout:    defaultDateLayout,
		frequency: market.FrequencyDay,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *Source) Open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %q: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []*row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return fmt.Errorf("parse %q: %w", s.path, err)
	}

	s.bars = make([]market.Bar, 0, len(rows))
	for _, r := range rows {
		ts, err := time.ParseInLocation(s.layout, r.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("parse date %q: %w", r.Date, err)
		}

		s.bars = append(s.bars, market.Bar{
			Symbol:      s.symbol,
			TimeStamp:   ts,
			Frequency:   s.frequency,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
			AdjClose:    r.AdjClose,
			HasAdjClose: s.hasAdjClose,
		})
	}

	sort.Slice(s.bars, func(i, j int) bool {
		return s.bars[i].TimeStamp.Before(s.bars[j].TimeStamp)
	})

	for i := 1; i < len(s.bars); i++ {
		if s.bars[i].TimeStamp.Equal(s.bars[i-1].TimeStamp) {
			return fmt.Errorf("duplicate timestamp %s in %q", s.bars[i].TimeStamp, s.path)
		}
	}

	return nil
}

func (s *Source) Close() error { return nil }

func (s *Source) NextBars() (market.Bars, error) {
	if s.idx >= len(s.bars) {
		return market.Bars{}, feed.ErrEOF
	}
	b := s.bars[s.idx]
	s.idx++
	return market.MustNewBars(b), nil
}

func (s *Source) PeekTime() (time.Time, bool) {
	if s.idx >= len(s.bars) {
		return time.Time{}, false
	}
	return s.bars[s.idx].TimeStamp, true
}
