package feed

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func testBar(symbol string, ts time.Time, close string) market.Bar {
	c := fixed.MustFromString(close)
	return market.Bar{
		Symbol:    symbol,
		TimeStamp: ts,
		Frequency: market.FrequencyHour,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    fixed.FromInt(100, 0),
	}
}

func groupsOf(bars ...market.Bar) []market.Bars {
	groups := make([]market.Bars, 0, len(bars))
	for _, b := range bars {
		groups = append(groups, market.MustNewBars(b))
	}
	return groups
}

func newTestFeed(t *testing.T, groups []market.Bars, options ...Option) *BarFeed {
	t.Helper()
	source, err := NewSliceSource(groups)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f := NewBarFeed(zap.NewNop(), source, options...)
	if err := f.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return f
}

func drain(t *testing.T, f *BarFeed) []market.Bars {
	t.Helper()
	var groups []market.Bars
	f.NewBarsEvent().Subscribe(func(bars market.Bars) {
		groups = append(groups, bars)
	})
	for !f.Eof() {
		if _, err := f.Dispatch(); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	return groups
}

var day1 = time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)

func TestBarFeed_Dispatch(t *testing.T) {
	f := newTestFeed(t, groupsOf(
		testBar("x", day1, "10"),
		testBar("x", day1.Add(time.Hour), "11"),
	))

	got := drain(t, f)

	if len(got) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(got))
	}
	if !got[0].Time().Equal(day1) {
		t.Errorf("Expected first group at %s, got %s", day1, got[0].Time())
	}
	if f.Series("x").Len() != 2 {
		t.Errorf("Expected 2 bars in series, got %d", f.Series("x").Len())
	}
	if !f.Series("x").Close().Ago(0).Eq(fixed.FromInt(11, 0)) {
		t.Errorf("Expected latest close 11, got %s", f.Series("x").Close().Ago(0))
	}
	if !f.CurrentBars().Time().Equal(day1.Add(time.Hour)) {
		t.Errorf("Expected current group at %s, got %s", day1.Add(time.Hour), f.CurrentBars().Time())
	}
}

func TestBarFeed_PeekDateTime(t *testing.T) {
	f := newTestFeed(t, groupsOf(testBar("x", day1, "10")))

	ts, known := f.PeekDateTime()
	if !known {
		t.Fatal("Expected peek to be known for a deterministic source")
	}
	if !ts.Equal(day1) {
		t.Errorf("Expected peek %s, got %s", day1, ts)
	}

	if _, err := f.Dispatch(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, known := f.PeekDateTime(); known {
		t.Error("Expected no peek after exhaustion")
	}
	if !f.Eof() {
		t.Error("Expected eof")
	}
}

func TestBarFeed_SessionCloseOnDayBoundary(t *testing.T) {
	day2 := time.Date(2020, 1, 2, 10, 0, 0, 0, time.UTC)
	f := newTestFeed(t, groupsOf(
		testBar("x", day1, "10"),
		testBar("x", day1.Add(time.Hour), "11"),
		testBar("x", day2, "12"),
	))

	got := drain(t, f)

	b0, _ := got[0].Get("x")
	if b0.SessionClose {
		t.Error("Expected no session close mid-day")
	}
	b1, _ := got[1].Get("x")
	if !b1.SessionClose {
		t.Error("Expected session close before the day boundary")
	}
	b2, _ := got[2].Get("x")
	if !b2.SessionClose {
		t.Error("Expected session close on the last bar overall")
	}
}

func TestBarFeed_SessionCloseInstrumentSkipsRound(t *testing.T) {
	ts0 := day1
	ts1 := day1.Add(time.Hour)
	ts2 := day1.Add(2 * time.Hour)

	groups := []market.Bars{
		market.MustNewBars(testBar("x", ts0, "10"), testBar("y", ts0, "20")),
		market.MustNewBars(testBar("y", ts1, "21")),
		market.MustNewBars(testBar("x", ts2, "11"), testBar("y", ts2, "22")),
	}

	f := newTestFeed(t, groups)
	got := drain(t, f)

	// x skips the middle round; its session state is unknowable there.
	bx, _ := got[0].Get("x")
	if bx.SessionClose {
		t.Error("Expected no session close for instrument missing from the next group")
	}
	by, _ := got[0].Get("y")
	if by.SessionClose {
		t.Error("Expected no session close for y mid-day")
	}
}

func TestBarFeed_CustomSessionClose(t *testing.T) {
	everyBar := func(market.Bar, *market.Bar) bool { return true }

	f := newTestFeed(t, groupsOf(
		testBar("x", day1, "10"),
		testBar("x", day1.Add(time.Hour), "11"),
	), WithSessionCloseFn(everyBar))

	got := drain(t, f)
	for i, group := range got {
		b, _ := group.Get("x")
		if !b.SessionClose {
			t.Errorf("Expected session close on group %d", i)
		}
	}
}

func TestBarFeed_MaxLenBoundsSeries(t *testing.T) {
	groups := groupsOf(
		testBar("x", day1, "1"),
		testBar("x", day1.Add(time.Hour), "2"),
		testBar("x", day1.Add(2*time.Hour), "3"),
		testBar("x", day1.Add(3*time.Hour), "4"),
		testBar("x", day1.Add(4*time.Hour), "5"),
	)

	f := newTestFeed(t, groups, WithMaxLen(3))
	drain(t, f)

	s := f.Series("x").Close()
	if s.Len() != 3 {
		t.Fatalf("Expected window of 3, got %d", s.Len())
	}
	want := []int{3, 4, 5}
	for i, w := range want {
		if !s.At(i).Eq(fixed.FromInt(w, 0)) {
			t.Errorf("Expected At(%d) to be %d, got %s", i, w, s.At(i))
		}
	}
	if s.FirstIndex() != 2 {
		t.Errorf("Expected FirstIndex 2, got %d", s.FirstIndex())
	}
}

func TestMergeSource_Interleaves(t *testing.T) {
	ts0 := day1
	ts1 := day1.Add(time.Hour)
	ts2 := day1.Add(2 * time.Hour)

	xs, err := NewSliceSource(groupsOf(testBar("x", ts0, "10"), testBar("x", ts2, "11")))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ys, err := NewSliceSource(groupsOf(testBar("y", ts0, "20"), testBar("y", ts1, "21")))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	m := NewMergeSource(xs, ys)
	if err := m.Open(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Round 1: both instruments share ts0.
	group, err := m.NextBars()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if group.Len() != 2 || !group.Time().Equal(ts0) {
		t.Errorf("Expected merged group of 2 at %s, got %d at %s", ts0, group.Len(), group.Time())
	}

	// Round 2: only y has a bar at ts1.
	group, err = m.NextBars()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if group.Len() != 1 || !group.Time().Equal(ts1) {
		t.Errorf("Expected solo group at %s, got %d at %s", ts1, group.Len(), group.Time())
	}
	if _, ok := group.Get("y"); !ok {
		t.Error("Expected y in the solo group")
	}

	// Round 3: only x remains.
	group, err = m.NextBars()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if group.Len() != 1 || !group.Time().Equal(ts2) {
		t.Errorf("Expected solo group at %s, got %d at %s", ts2, group.Len(), group.Time())
	}

	if _, err := m.NextBars(); err != ErrEOF {
		t.Errorf("Expected ErrEOF, got %v", err)
	}
}

func TestMergeSource_PeekTime(t *testing.T) {
	xs, _ := NewSliceSource(groupsOf(testBar("x", day1.Add(time.Hour), "10")))
	ys, _ := NewSliceSource(groupsOf(testBar("y", day1, "20")))

	m := NewMergeSource(xs, ys)
	if err := m.Open(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	ts, ok := m.PeekTime()
	if !ok {
		t.Fatal("Expected peek to be known")
	}
	if !ts.Equal(day1) {
		t.Errorf("Expected smallest buffered time %s, got %s", day1, ts)
	}
}

func TestDefaultSessionClose(t *testing.T) {
	current := testBar("x", day1, "10")

	if !DefaultSessionClose(current, nil) {
		t.Error("Expected session close with no next bar")
	}

	sameDay := testBar("x", day1.Add(time.Hour), "11")
	if DefaultSessionClose(current, &sameDay) {
		t.Error("Expected no session close within the day")
	}

	nextDay := testBar("x", day1.Add(24*time.Hour), "11")
	if !DefaultSessionClose(current, &nextDay) {
		t.Error("Expected session close across the day boundary")
	}
}

func TestNewSliceSource_RejectsUnordered(t *testing.T) {
	groups := []market.Bars{
		market.MustNewBars(testBar("x", day1.Add(time.Hour), "10")),
		market.MustNewBars(testBar("x", day1, "11")),
	}
	if _, err := NewSliceSource(groups); err == nil {
		t.Error("Expected error for unordered groups")
	}
}
