package series

import (
	"errors"
	"testing"
	"time"
)

func TestSequence_Append(t *testing.T) {
	s := NewSequence[int](8)

	s.Append(1)
	s.Append(2)
	s.Append(3)

	if s.Len() != 3 {
		t.Errorf("Expected length 3, got %d", s.Len())
	}
	if s.At(0) != 1 || s.At(2) != 3 {
		t.Errorf("Expected window [1..3], got At(0)=%d At(2)=%d", s.At(0), s.At(2))
	}
	if s.Ago(0) != 3 {
		t.Errorf("Expected latest 3, got %d", s.Ago(0))
	}
}

func TestSequence_Eviction(t *testing.T) {
	s := NewSequence[int](3)

	for i := 1; i <= 5; i++ {
		s.Append(i)
	}

	if s.Len() != 3 {
		t.Errorf("Expected length 3, got %d", s.Len())
	}

	want := []int{3, 4, 5}
	for i, w := range want {
		if got := s.At(i); got != w {
			t.Errorf("Expected At(%d) to be %d, got %d", i, w, got)
		}
	}
}

func TestSequence_MonotonicIndices(t *testing.T) {
	s := NewSequence[int](3)

	if s.FirstIndex() != 0 || s.NextIndex() != 0 {
		t.Errorf("Expected empty indices 0/0, got %d/%d", s.FirstIndex(), s.NextIndex())
	}

	for i := 1; i <= 5; i++ {
		s.Append(i)
	}

	if s.FirstIndex() != 2 {
		t.Errorf("Expected FirstIndex 2 after two evictions, got %d", s.FirstIndex())
	}
	if s.NextIndex() != 5 {
		t.Errorf("Expected NextIndex 5, got %d", s.NextIndex())
	}
}

func TestSequence_AppendWithTime(t *testing.T) {
	s := NewSequence[int](8)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.AppendWithTime(t0, 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.AppendWithTime(t0.Add(time.Minute), 2); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := s.AppendWithTime(t0.Add(time.Minute), 3); !errors.Is(err, ErrNonIncreasingTime) {
		t.Errorf("Expected ErrNonIncreasingTime for equal timestamp, got %v", err)
	}
	if err := s.AppendWithTime(t0, 3); !errors.Is(err, ErrNonIncreasingTime) {
		t.Errorf("Expected ErrNonIncreasingTime for earlier timestamp, got %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("Expected rejected appends to leave length 2, got %d", s.Len())
	}
	if !s.TimeAgo(0).Equal(t0.Add(time.Minute)) {
		t.Errorf("Expected latest time %s, got %s", t0.Add(time.Minute), s.TimeAgo(0))
	}
}

func TestSequence_NewValueEvent(t *testing.T) {
	s := NewSequence[int](8)

	var got []int
	s.NewValueEvent().Subscribe(func(v Value[int]) {
		got = append(got, v.Value)
	})

	s.Append(7)
	s.Append(8)

	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("Expected [7 8], got %v", got)
	}
}

func TestSequence_DefaultMaxLen(t *testing.T) {
	s := NewSequence[int](0)
	if s.MaxLen() != DefaultMaxLen {
		t.Errorf("Expected default max length %d, got %d", DefaultMaxLen, s.MaxLen())
	}
}

func TestSequence_Values(t *testing.T) {
	s := NewSequence[int](3)
	for i := 1; i <= 4; i++ {
		s.Append(i)
	}

	got := s.Values()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}
