package strategy

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/broker"
	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func testGroups(closes ...string) []market.Bars {
	t0 := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	groups := make([]market.Bars, 0, len(closes))
	for i, close := range closes {
		c := fixed.MustFromString(close)
		groups = append(groups, market.MustNewBars(market.Bar{
			Symbol:    "x",
			TimeStamp: t0.Add(time.Duration(i) * time.Hour),
			Frequency: market.FrequencyHour,
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    fixed.FromInt(100, 0),
		}))
	}
	return groups
}

func newTestEngine(t *testing.T, cash int64, closes ...string) *Engine {
	t.Helper()

	source, err := feed.NewSliceSource(testGroups(closes...))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	barFeed := feed.NewBarFeed(zap.NewNop(), source)
	b := broker.New(zap.NewNop(), fixed.FromInt64(cash, 0), barFeed)

	engine, err := NewEngine(zap.NewNop(), barFeed, b)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return engine
}

func TestEngine_Lifecycle(t *testing.T) {
	engine := newTestEngine(t, 1000, "10", "11", "12")

	var events []string
	engine.OnStart = func() { events = append(events, "start") }
	engine.OnBars = func(market.Bars) { events = append(events, "bars") }
	engine.OnFinish = func() { events = append(events, "finish") }

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"start", "bars", "bars", "bars", "finish"}
	if len(events) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], events[i])
		}
	}
}

func TestEngine_FillsVisibleInNextOnBars(t *testing.T) {
	engine := newTestEngine(t, 1000, "10", "20", "30")
	b := engine.Broker()

	var sharesSeen []int64
	round := 0
	engine.OnBars = func(bars market.Bars) {
		sharesSeen = append(sharesSeen, b.Shares("x"))
		if round == 0 {
			order := broker.NewMarketOrder(broker.ActionBuy, "x", 5, true)
			order.SetGoodTillCanceled(true)
			if err := b.PlaceOrder(order); err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		}
		round++
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Placed on round 0, filled by the broker before round 1's OnBars.
	want := []int64{0, 5, 5}
	for i := range want {
		if sharesSeen[i] != want[i] {
			t.Errorf("Expected shares %v, got %v", want, sharesSeen)
			break
		}
	}
	if !b.Cash().Eq(fixed.FromInt(900, 0)) {
		t.Errorf("Expected cash 900 after buying 5 at 20, got %s", b.Cash())
	}
}

func TestEngine_OrderUpdatedHandler(t *testing.T) {
	engine := newTestEngine(t, 1000, "10", "20")
	b := engine.Broker()

	var updates []broker.OrderUpdate
	engine.OnOrderUpdated = func(u broker.OrderUpdate) { updates = append(updates, u) }

	engine.OnStart = func() {
		order := broker.NewMarketOrder(broker.ActionBuy, "x", 5, true)
		order.SetGoodTillCanceled(true)
		_ = b.PlaceOrder(order)
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(updates) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(updates))
	}
	if !updates[0].Order.IsFilled() {
		t.Error("Expected update for a filled order")
	}
}

func TestEngine_StopFromHandler(t *testing.T) {
	engine := newTestEngine(t, 1000, "10", "11", "12", "13")

	rounds := 0
	engine.OnBars = func(market.Bars) {
		rounds++
		if rounds == 2 {
			engine.Stop()
		}
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rounds != 2 {
		t.Errorf("Expected 2 rounds before stop, got %d", rounds)
	}
}

func TestEngine_IndicatorIntegration(t *testing.T) {
	engine := newTestEngine(t, 1000, "10", "20", "30", "40")

	closes := engine.Feed().Series("x").Close()

	var lastLen int
	engine.OnBars = func(market.Bars) {
		lastLen = closes.Len()
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if lastLen != 4 {
		t.Errorf("Expected series to hold 4 closes inside the last round, got %d", lastLen)
	}
}
