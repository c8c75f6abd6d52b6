// Package duckdbfeed streams bars out of a DuckDB table through a
// database/sql cursor with one-row lookahead.
package duckdbfeed

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Source reads one instrument's bars from a table named <symbol>_bars with
// columns (ts, open, high, low, close, volume), ordered by timestamp.
type Source struct {
	dataSourceName string
	symbol         string
	frequency      market.Frequency
	from, to       time.Time

	db   *sql.DB
	rows *sql.Rows

	next *market.Bar
	done bool
}

func NewSource(dataSourceName, symbol string, frequency market.Frequency, from, to time.Time) *Source {
	return &Source{
		dataSourceName: dataSourceName,
		symbol:         symbol,
		frequency:      frequency,
		from:           from,
		to:             to,
	}
}

func (s *Source) Open() error {
	db, err := sql.Open("duckdb", s.dataSourceName)
	if err != nil {
		return fmt.Errorf("open duckdb %q: %w", s.dataSourceName, err)
	}

	query := fmt.Sprintf(
		`SELECT ts, open, high, low, close, volume FROM %s_bars WHERE ts BETWEEN ? AND ? ORDER BY ts`,
		s.symbol)

	rows, err := db.Query(query, s.from, s.to)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("query bars for %s: %w", s.symbol, err)
	}

	s.db = db
	s.rows = rows
	return nil
}

func (s *Source) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
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
	if s.next != nil || s.done {
		return nil
	}

	if !s.rows.Next() {
		s.done = true
		if err := s.rows.Err(); err != nil {
			return fmt.Errorf("scanning rows: %w", err)
		}
		return nil
	}

	var (
		ts                             time.Time
		open, high, low, close, volume float64
	)
	if err := s.rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	s.next = &market.Bar{
		Symbol:    s.symbol,
		TimeStamp: ts,
		Frequency: s.frequency,
		Open:      fixed.FromFloat64(open),
		High:      fixed.FromFloat64(high),
		Low:       fixed.FromFloat64(low),
		Close:     fixed.FromFloat64(close),
		Volume:    fixed.FromFloat64(volume),
	}
	return nil
}
