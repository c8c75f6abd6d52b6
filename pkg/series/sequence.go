// Package series provides append-only, bounded, timestamp-tagged sequences.
// A Sequence is the substrate indicators and the broker read from: new
// values arrive through Append and are observable positionally, relatively
// ("N values ago") or through the new-value event.
package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/event"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/circular"
)

const DefaultMaxLen = 1024

var ErrNonIncreasingTime = errors.New("timestamp must be greater than the last appended")

// Value is one element of a Sequence. TimeStamp is zero for untimed appends.
type Value[T any] struct {
	TimeStamp time.Time
	Value     T
}

// Sequence retains at most maxLen most-recent values, silently evicting the
// oldest on overflow. Positional access is window-relative: At(0) is the
// oldest retained value. FirstIndex/NextIndex expose monotonic counters that
// keep advancing across evictions, so consumers can detect that a cached
// position fell out of the window instead of silently reading a shifted
// value.
type Sequence[T any] struct {
	buf      *circular.Buffer[Value[T]]
	evicted  int64
	lastTime time.Time

	newValue *event.Event[Value[T]]
}

func NewSequence[T any](maxLen int) *Sequence[T] {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Sequence[T]{
		buf:      circular.NewBuffer[Value[T]](uint(maxLen)),
		newValue: event.New[Value[T]](),
	}
}

// NewValueEvent fires after each append with the appended value.
func (s *Sequence[T]) NewValueEvent() *event.Event[Value[T]] {
	return s.newValue
}

// Append adds an untimed value.
func (s *Sequence[T]) Append(v T) {
	s.push(Value[T]{Value: v})
}

// AppendWithTime adds a timestamped value. Timestamps must be strictly
// increasing; violating that is a usage error.
func (s *Sequence[T]) AppendWithTime(ts time.Time, v T) error {
	if !s.lastTime.IsZero() && !ts.After(s.lastTime) {
		return fmt.Errorf("%w: %s <= %s", ErrNonIncreasingTime, ts, s.lastTime)
	}
	s.lastTime = ts
	s.push(Value[T]{TimeStamp: ts, Value: v})
	return nil
}

func (s *Sequence[T]) push(v Value[T]) {
	if s.buf.IsFull() {
		s.evicted++
	}
	s.buf.Push(v)
	s.newValue.Emit(v)
}

func (s *Sequence[T]) Len() int {
	return int(s.buf.Size())
}

func (s *Sequence[T]) MaxLen() int {
	return int(s.buf.Capacity())
}

// At returns the value at window position i, 0 being the oldest retained.
// Panics when i is out of range.
func (s *Sequence[T]) At(i int) T {
	return s.buf.At(uint(i)).Value
}

func (s *Sequence[T]) TimeAt(i int) time.Time {
	return s.buf.At(uint(i)).TimeStamp
}

// Ago returns the value n positions back from the latest; Ago(0) is the
// latest.
func (s *Sequence[T]) Ago(n int) T {
	return s.buf.Get(uint(n)).Value
}

func (s *Sequence[T]) TimeAgo(n int) time.Time {
	return s.buf.Get(uint(n)).TimeStamp
}

// FirstIndex is the monotonic index of the value currently at window
// position 0. It never decreases; it grows by one per eviction.
func (s *Sequence[T]) FirstIndex() int64 {
	return s.evicted
}

// NextIndex is the monotonic index the next appended value will get.
func (s *Sequence[T]) NextIndex() int64 {
	return s.evicted + int64(s.buf.Size())
}

// Values copies out the live window, oldest first.
func (s *Sequence[T]) Values() []T {
	out := make([]T, 0, s.buf.Size())
	for i := uint(0); i < s.buf.Size(); i++ {
		out = append(out, s.buf.At(i).Value)
	}
	return out
}
