package indicators

import (
	"testing"

	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func feedValues(s *series.Sequence[fixed.Point], values ...int) {
	for _, v := range values {
		s.Append(fixed.FromInt(v, 0))
	}
}

func TestSma_WarmsUp(t *testing.T) {
	source := series.NewSequence[fixed.Point](16)
	sma := NewSma(source, 3)

	feedValues(source, 1, 2)
	if sma.Ready() {
		t.Error("Expected SMA to not be ready before the window fills")
	}
	if sma.Output().Len() != 0 {
		t.Errorf("Expected empty output, got %d values", sma.Output().Len())
	}

	feedValues(source, 3)
	if !sma.Ready() {
		t.Fatal("Expected SMA to be ready")
	}
	if !sma.Value().Eq(fixed.FromInt(2, 0)) {
		t.Errorf("Expected average 2, got %s", sma.Value())
	}
}

func TestSma_Rolls(t *testing.T) {
	source := series.NewSequence[fixed.Point](16)
	sma := NewSma(source, 3)

	feedValues(source, 1, 2, 3, 4, 5)

	// Window is [3, 4, 5].
	if !sma.Value().Eq(fixed.FromInt(4, 0)) {
		t.Errorf("Expected average 4, got %s", sma.Value())
	}
	if sma.Output().Len() != 3 {
		t.Errorf("Expected 3 outputs, got %d", sma.Output().Len())
	}
}

func TestSma_Chained(t *testing.T) {
	source := series.NewSequence[fixed.Point](16)
	first := NewSma(source, 2)
	second := NewSma(first.Output(), 2)

	feedValues(source, 2, 4, 6)

	// first emits 3, 5; second averages them.
	if !second.Ready() {
		t.Fatal("Expected chained SMA to be ready")
	}
	if !second.Value().Eq(fixed.FromInt(4, 0)) {
		t.Errorf("Expected chained average 4, got %s", second.Value())
	}
}

func TestNewSma_InvalidWindow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for non-positive window")
		}
	}()
	NewSma(series.NewSequence[fixed.Point](16), 0)
}
