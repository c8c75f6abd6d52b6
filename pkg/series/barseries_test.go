package series

import (
	"errors"
	"testing"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func testBar(ts time.Time, close string) market.Bar {
	c := fixed.MustFromString(close)
	return market.Bar{
		Symbol:    "orcl",
		TimeStamp: ts,
		Frequency: market.FrequencyDay,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    fixed.FromInt(100, 0),
	}
}

func TestBarSeries_Append(t *testing.T) {
	s := NewBarSeries(8, false)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Append(testBar(t0, "10")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.Append(testBar(t0.Add(24*time.Hour), "11")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("Expected length 2, got %d", s.Len())
	}
	if !s.Close().Ago(0).Eq(fixed.FromInt(11, 0)) {
		t.Errorf("Expected latest close 11, got %s", s.Close().Ago(0))
	}
	if !s.LastTime().Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("Expected last time %s, got %s", t0.Add(24*time.Hour), s.LastTime())
	}
}

func TestBarSeries_RejectsStaleBar(t *testing.T) {
	s := NewBarSeries(8, false)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Append(testBar(t0, "10")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.Append(testBar(t0, "11")); !errors.Is(err, ErrNonIncreasingTime) {
		t.Errorf("Expected ErrNonIncreasingTime, got %v", err)
	}

	if s.Len() != 1 || s.Close().Len() != 1 {
		t.Error("Expected rejected bar to leave all sequences untouched")
	}
}

func TestBarSeries_AdjClose(t *testing.T) {
	s := NewBarSeries(8, true)
	if s.AdjClose() == nil {
		t.Fatal("Expected adjusted close sequence to exist")
	}

	withAdj := testBar(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "10")
	withAdj.AdjClose = fixed.FromInt(5, 0)
	withAdj.HasAdjClose = true

	if err := s.Append(withAdj); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !s.AdjClose().Ago(0).Eq(fixed.FromInt(5, 0)) {
		t.Errorf("Expected adjusted close 5, got %s", s.AdjClose().Ago(0))
	}
}

func TestBarSeries_NoAdjClose(t *testing.T) {
	s := NewBarSeries(8, false)
	if s.AdjClose() != nil {
		t.Error("Expected no adjusted close sequence")
	}
}
