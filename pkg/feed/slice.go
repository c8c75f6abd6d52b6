package feed

import (
	"fmt"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
)

// SliceSource serves pre-built bar groups from memory. Used by tests.
type SliceSource struct {
	groups []market.Bars
	idx    int
}

func NewSliceSource(groups []market.Bars) (*SliceSource, error) {
	for i := 1; i < len(groups); i++ {
		if !groups[i].Time().After(groups[i-1].Time()) {
			return nil, fmt.Errorf("groups must be strictly time ordered: %s after %s",
				groups[i].Time(), groups[i-1].Time())
		}
	}
	return &SliceSource{groups: groups}, nil
}

func (s *SliceSource) Open() error  { return nil }
func (s *SliceSource) Close() error { return nil }

func (s *SliceSource) NextBars() (market.Bars, error) {
	if s.idx >= len(s.groups) {
		return market.Bars{}, ErrEOF
	}
	group := s.groups[s.idx]
	s.idx++
	return group, nil
}

func (s *SliceSource) PeekTime() (time.Time, bool) {
	if s.idx >= len(s.groups) {
		return time.Time{}, false
	}
	return s.groups[s.idx].Time(), true
}
