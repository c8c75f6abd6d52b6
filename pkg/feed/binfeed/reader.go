package binfeed

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Record is the on-disk bar layout: 48 packed bytes, timestamps in
// nanoseconds since the unix epoch.
type Record struct {
	TimeStamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Source serves one instrument's bars out of a Record archive, starting at
// the first record inside [from, to]. The start index is found by binary
// search, so opening a multi-gigabyte archive costs a handful of reads.
type Source struct {
	archive   *Archive[Record]
	symbol    string
	frequency market.Frequency
	from, to  time.Time

	index int64
	count int64

	next *market.Bar
}

func NewSource(path, symbol string, frequency market.Frequency, from, to time.Time) *Source {
	return &Source{
		archive:   NewArchive[Record](path),
		symbol:    symbol,
		frequency: frequency,
		from:      from,
		to:        to,
	}
}

func (s *Source) Open() error {
	if err := s.archive.Open(); err != nil {
		return err
	}

	count, err := s.archive.EntryCount()
	if err != nil {
		_ = s.archive.Close()
		return err
	}
	s.count = count

	index, err := s.searchStart()
	if err != nil {
		_ = s.archive.Close()
		return err
	}
	s.index = index

	return nil
}

func (s *Source) Close() error {
	return s.archive.Close()
}

// searchStart finds the first record with timestamp >= from.
func (s *Source) searchStart() (int64, error) {
	lo, hi := int64(0), s.count
	fromNanos := s.from.UnixNano()

	for lo < hi {
		mid := lo + (hi-lo)/2

		var record Record
		if err := s.archive.Read(mid, &record); err != nil {
			return 0, fmt.Errorf("unable to read record %d: %w", mid, err)
		}

		if record.TimeStamp < fromNanos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo, nil
}

func (s *Source) NextBars() (market.Bars, error) {
	if err := s.fill(); err != nil {
		return market.Bars{}, err
	}
	if s.next == nil {
		return market.Bars{}, feed.ErrEOF
	}

	b := *s.next
	s.next = nil
	return market.MustNewBars(b), nil
}

func (s *Source) PeekTime() (time.Time, bool) {
	if err := s.fill(); err != nil {
		return time.Time{}, false
	}
	if s.next == nil {
		return time.Time{}, false
	}
	return s.next.TimeStamp, true
}

func (s *Source) fill() error {
	if s.next != nil {
		return nil
	}
	if s.index >= s.count {
		return nil
	}

	var record Record
	if err := s.archive.Read(s.index, &record); err != nil {
		if errors.Is(err, ErrEof) {
			s.index = s.count
			return nil
		}
		return fmt.Errorf("unable to read record %d: %w", s.index, err)
	}

	ts := time.Unix(0, record.TimeStamp).UTC()
	if ts.After(s.to) {
		s.index = s.count
		return nil
	}
	s.index++

	s.next = &market.Bar{
		Symbol:    s.symbol,
		TimeStamp: ts,
		Frequency: s.frequency,
		Open:      fixed.FromFloat64(record.Open),
		High:      fixed.FromFloat64(record.High),
		Low:       fixed.FromFloat64(record.Low),
		Close:     fixed.FromFloat64(record.Close),
		Volume:    fixed.FromFloat64(record.Volume),
	}
	return nil
}
