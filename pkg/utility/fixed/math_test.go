package fixed

import (
	"testing"
)

func points(values ...string) []Point {
	out := make([]Point, 0, len(values))
	for _, v := range values {
		out = append(out, MustFromString(v))
	}
	return out
}

func TestMean(t *testing.T) {
	if !Mean(points("1", "2", "3", "4")).Eq(MustFromString("2.5")) {
		t.Errorf("Expected mean 2.5, got %s", Mean(points("1", "2", "3", "4")))
	}
	if !Mean(nil).IsZero() {
		t.Error("Expected mean of empty series to be zero")
	}
}

func TestStdDev(t *testing.T) {
	data := points("2", "4", "4", "6")
	mean := Mean(data)

	want := FromInt(2, 0).Sqrt().Rescale(6)
	if !StdDev(data, mean).Rescale(6).Eq(want) {
		t.Errorf("Expected stddev %s, got %s", want, StdDev(data, mean))
	}
	if !StdDev(points("5"), FromInt(5, 0)).IsZero() {
		t.Error("Expected stddev of a single point to be zero")
	}
}

func TestSharpeRatio(t *testing.T) {
	flat := points("1", "1", "1")
	if !SharpeRatio(flat, Zero).IsZero() {
		t.Error("Expected zero Sharpe for zero volatility")
	}

	data := points("0.01", "0.02", "0.03")
	got := SharpeRatio(data, Zero)
	if !got.Gt(Zero) {
		t.Errorf("Expected positive Sharpe, got %s", got)
	}
}

func TestSortinoRatio(t *testing.T) {
	allGains := points("0.01", "0.02", "0.03")
	if !SortinoRatio(allGains, Zero).IsZero() {
		t.Error("Expected zero Sortino with no downside observations")
	}

	mixed := points("0.02", "-0.01", "0.03", "-0.02")
	got := SortinoRatio(mixed, Zero)
	if !got.Gt(Zero) {
		t.Errorf("Expected positive Sortino, got %s", got)
	}
}
