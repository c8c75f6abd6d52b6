// Package feed turns a bar source into a dispatchable Subject. The BarFeed
// pulls synchronized bar groups from its Source, maintains per-instrument
// series, marks session closes and multicasts each new group.
package feed

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/dispatch"
	"github.com/tradeloop-dev/tradeloop/pkg/event"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/series"
)

var (
	// ErrNoData reports that a realtime source has nothing buffered right
	// now. Not a failure; the dispatcher simply polls again.
	ErrNoData = errors.New("no data available yet")

	// ErrEOF reports permanent end of data.
	ErrEOF = errors.New("end of data")
)

// Source is the seam concrete feeds implement: CSV files, DuckDB tables,
// binary tick archives, live websocket streams.
type Source interface {
	Open() error
	Close() error

	// NextBars returns the next synchronized group, ErrNoData when nothing
	// is buffered yet, or ErrEOF when the source is exhausted.
	NextBars() (market.Bars, error)

	// PeekTime returns the timestamp of the next group when it is knowable
	// in advance. Realtime sources return ok == false.
	PeekTime() (time.Time, bool)
}

type Option func(*BarFeed)

// WithMaxLen bounds the per-instrument series windows.
func WithMaxLen(maxLen int) Option {
	return func(f *BarFeed) {
		f.maxLen = maxLen
	}
}

// WithAdjClose declares that the source provides adjusted closing values.
func WithAdjClose() Option {
	return func(f *BarFeed) {
		f.hasAdjClose = true
	}
}

// WithSessionCloseFn overrides the session boundary predicate.
func WithSessionCloseFn(fn SessionCloseFn) Option {
	return func(f *BarFeed) {
		f.sessionClose = fn
	}
}

// BarFeed is a Subject wrapping a Source with a one-group lookahead. The
// lookahead serves two purposes: it answers PeekDateTime for deterministic
// sources, and it lets the feed decide session closes by comparing a bar
// with its successor.
type BarFeed struct {
	logger *zap.Logger
	source Source

	maxLen       int
	hasAdjClose  bool
	sessionClose SessionCloseFn

	seriesBy map[string]*series.BarSeries
	newBars  *event.Event[market.Bars]

	next       market.Bars
	current    market.Bars
	eofReached bool
}

func NewBarFeed(logger *zap.Logger, source Source, options ...Option) *BarFeed {
	f := &BarFeed{
		logger:       logger,
		source:       source,
		maxLen:       series.DefaultMaxLen,
		sessionClose: DefaultSessionClose,
		seriesBy:     make(map[string]*series.BarSeries),
		newBars:      event.New[market.Bars](),
	}

	for _, option := range options {
		option(f)
	}

	return f
}

// NewBarsEvent fires once per dispatched group, after the series were
// updated.
func (f *BarFeed) NewBarsEvent() *event.Event[market.Bars] {
	return f.newBars
}

// CurrentBars is the most recently dispatched group.
func (f *BarFeed) CurrentBars() market.Bars {
	return f.current
}

// Series returns the bar series for an instrument, creating it lazily so
// indicators can attach before the first bar arrives.
func (f *BarFeed) Series(symbol string) *series.BarSeries {
	s, ok := f.seriesBy[symbol]
	if !ok {
		s = series.NewBarSeries(f.maxLen, f.hasAdjClose)
		f.seriesBy[symbol] = s
	}
	return s
}

func (f *BarFeed) HasAdjClose() bool {
	return f.hasAdjClose
}

func (f *BarFeed) Start() error {
	if err := f.source.Open(); err != nil {
		return fmt.Errorf("feed source open: %w", err)
	}
	return nil
}

func (f *BarFeed) Stop() error {
	return f.source.Close()
}

func (f *BarFeed) Join() error {
	if j, ok := f.source.(interface{ Join() error }); ok {
		return j.Join()
	}
	return nil
}

func (f *BarFeed) Eof() bool {
	return f.eofReached && f.next.IsEmpty()
}

func (f *BarFeed) PeekDateTime() (time.Time, bool) {
	if err := f.fill(); err != nil {
		// Surface the failure on the next Dispatch call instead.
		f.logger.Warn("feed lookahead failed", zap.Error(err))
	}
	if f.next.IsEmpty() {
		return time.Time{}, false
	}
	return f.next.Time(), true
}

func (f *BarFeed) Dispatch() (bool, error) {
	if err := f.fill(); err != nil {
		return false, err
	}
	if f.next.IsEmpty() {
		return false, nil
	}

	current := f.next
	f.next = market.Bars{}
	if err := f.fill(); err != nil {
		return false, err
	}

	current = f.markSessionClose(current)

	for _, symbol := range current.Symbols() {
		b, _ := current.Get(symbol)
		if err := f.Series(symbol).Append(b); err != nil {
			return false, fmt.Errorf("append bar for %s: %w", symbol, err)
		}
	}

	f.current = current
	f.newBars.Emit(current)
	return true, nil
}

func (f *BarFeed) DispatchPriority() int {
	return dispatch.PriorityBarFeed
}

// fill pulls one group into the lookahead slot if it is empty and the
// source is not exhausted.
func (f *BarFeed) fill() error {
	if f.eofReached || !f.next.IsEmpty() {
		return nil
	}

	group, err := f.source.NextBars()
	switch {
	case err == nil:
		f.next = group
	case errors.Is(err, ErrNoData):
	case errors.Is(err, ErrEOF):
		f.eofReached = true
	default:
		return err
	}
	return nil
}

// markSessionClose rewrites the group with session-close flags derived from
// the lookahead. With no lookahead and no EOF (a realtime gap) the session
// boundary is unknowable and the flag stays unset.
func (f *BarFeed) markSessionClose(current market.Bars) market.Bars {
	lastOverall := f.eofReached && f.next.IsEmpty()
	if !lastOverall && f.next.IsEmpty() {
		return current
	}

	bars := make([]market.Bar, 0, current.Len())
	for _, symbol := range current.Symbols() {
		b, _ := current.Get(symbol)

		var next *market.Bar
		if nb, ok := f.next.Get(symbol); ok {
			next = &nb
		}
		if next == nil && !lastOverall {
			// The instrument skips the immediately following group; its
			// own next bar may come later, so no session close.
			bars = append(bars, b)
			continue
		}

		b.SessionClose = f.sessionClose(b, next)
		bars = append(bars, b)
	}

	return market.MustNewBars(bars...)
}
