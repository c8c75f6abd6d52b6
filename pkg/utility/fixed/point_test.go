package fixed

import (
	"testing"
)

func TestPoint_Arithmetic(t *testing.T) {
	a := FromInt(10, 0)
	b := FromInt(4, 0)

	if !a.Add(b).Eq(FromInt(14, 0)) {
		t.Errorf("Expected 14, got %s", a.Add(b))
	}
	if !a.Sub(b).Eq(FromInt(6, 0)) {
		t.Errorf("Expected 6, got %s", a.Sub(b))
	}
	if !a.Mul(b).Eq(FromInt(40, 0)) {
		t.Errorf("Expected 40, got %s", a.Mul(b))
	}
	if !a.Div(b).Eq(MustFromString("2.5")) {
		t.Errorf("Expected 2.5, got %s", a.Div(b))
	}
}

func TestPoint_IntHelpers(t *testing.T) {
	a := MustFromString("2.5")

	if !a.MulInt64(4).Eq(FromInt(10, 0)) {
		t.Errorf("Expected 10, got %s", a.MulInt64(4))
	}
	if !a.DivInt64(5).Eq(MustFromString("0.5")) {
		t.Errorf("Expected 0.5, got %s", a.DivInt64(5))
	}
}

func TestPoint_Comparisons(t *testing.T) {
	a := MustFromString("1.50")
	b := MustFromString("1.5")

	if !a.Eq(b) {
		t.Error("Expected 1.50 == 1.5 regardless of scale")
	}
	if !FromInt(2, 0).Gt(a) {
		t.Error("Expected 2 > 1.5")
	}
	if !a.Lt(FromInt(2, 0)) {
		t.Error("Expected 1.5 < 2")
	}
	if !a.Gte(b) || !a.Lte(b) {
		t.Error("Expected equal values to satisfy Gte and Lte")
	}
}

func TestPoint_Predicates(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Expected Zero.IsZero")
	}
	if !MustFromString("-0.01").IsNeg() {
		t.Error("Expected -0.01 to be negative")
	}
	if One.IsNeg() {
		t.Error("Expected One to not be negative")
	}
}

func TestPoint_NegAbs(t *testing.T) {
	a := MustFromString("-3.2")

	if !a.Abs().Eq(MustFromString("3.2")) {
		t.Errorf("Expected 3.2, got %s", a.Abs())
	}
	if !a.Neg().Eq(MustFromString("3.2")) {
		t.Errorf("Expected 3.2, got %s", a.Neg())
	}
}

func TestPoint_FromString(t *testing.T) {
	if _, err := FromString("not a number"); err == nil {
		t.Error("Expected error for invalid input")
	}

	v, err := FromString("123.456")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v.String() != "123.456" {
		t.Errorf("Expected 123.456, got %s", v)
	}
}

func TestPoint_TextRoundTrip(t *testing.T) {
	a := MustFromString("99.95")

	text, err := a.MarshalText()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var b Point
	if err := b.UnmarshalText(text); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !a.Eq(b) {
		t.Errorf("Expected %s, got %s", a, b)
	}
}
