// Package strategy glues feed, broker and dispatcher into a runnable
// trading loop. Strategy code is plain functions assigned to the engine's
// handler fields; all of them run on the dispatcher thread.
package strategy

import (
	"context"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/broker"
	"github.com/tradeloop-dev/tradeloop/pkg/dispatch"
	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
)

type (
	StartHandler       func()
	BarsHandler        func(bars market.Bars)
	OrderUpdateHandler func(update broker.OrderUpdate)
	IdleHandler        func()
	FinishHandler      func()
)

// Engine runs one strategy against one feed and one broker. Handlers left
// nil are skipped. The broker is registered before the feed and subscribes
// to the feed first, so by the time OnBars runs, fills for those bars have
// already been applied.
type Engine struct {
	logger     *zap.Logger
	dispatcher *dispatch.Dispatcher
	barFeed    *feed.BarFeed
	broker     *broker.Broker

	// Handlers
	OnStart        StartHandler
	OnBars         BarsHandler
	OnOrderUpdated OrderUpdateHandler
	OnIdle         IdleHandler
	OnFinish       FinishHandler
}

func NewEngine(logger *zap.Logger, barFeed *feed.BarFeed, b *broker.Broker) (*Engine, error) {
	e := &Engine{
		logger:     logger,
		dispatcher: dispatch.NewDispatcher(logger),
		barFeed:    barFeed,
		broker:     b,
	}

	if err := e.dispatcher.AddSubject(b); err != nil {
		return nil, err
	}
	if err := e.dispatcher.AddSubject(barFeed); err != nil {
		return nil, err
	}

	e.dispatcher.StartEvent().Subscribe(func(struct{}) {
		if e.OnStart != nil {
			e.OnStart()
		}
	})
	e.dispatcher.IdleEvent().Subscribe(func(struct{}) {
		if e.OnIdle != nil {
			e.OnIdle()
		}
	})
	barFeed.NewBarsEvent().Subscribe(func(bars market.Bars) {
		if e.OnBars != nil {
			e.OnBars(bars)
		}
	})
	b.OrderUpdatedEvent().Subscribe(func(update broker.OrderUpdate) {
		if e.OnOrderUpdated != nil {
			e.OnOrderUpdated(update)
		}
	})

	return e, nil
}

func (e *Engine) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

func (e *Engine) Feed() *feed.BarFeed {
	return e.barFeed
}

func (e *Engine) Broker() *broker.Broker {
	return e.broker
}

// Run drives the dispatch loop to completion, then calls OnFinish whether
// or not the loop ended cleanly.
func (e *Engine) Run(ctx context.Context) error {
	err := e.dispatcher.Run(ctx)
	if e.OnFinish != nil {
		e.OnFinish()
	}
	return err
}

// Stop requests the loop to exit at the next round boundary.
func (e *Engine) Stop() {
	e.dispatcher.Stop()
}
