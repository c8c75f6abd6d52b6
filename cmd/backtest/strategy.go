package main

import (
	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/broker"
	"github.com/tradeloop-dev/tradeloop/pkg/indicators"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/strategy"
)

// smaCross goes long when the fast average crosses above the slow one and
// flattens on the reverse cross. Market orders fill at the bar's close.
type smaCross struct {
	logger *zap.Logger
	engine *strategy.Engine
	symbol string

	fast *indicators.Sma
	slow *indicators.Sma
}

func newSmaCross(logger *zap.Logger, engine *strategy.Engine, symbol string, fastWindow, slowWindow int) *smaCross {
	closes := engine.Feed().Series(symbol).Close()
	s := &smaCross{
		logger: logger,
		engine: engine,
		symbol: symbol,
		fast:   indicators.NewSma(closes, fastWindow),
		slow:   indicators.NewSma(closes, slowWindow),
	}
	engine.OnBars = s.onBars
	engine.OnOrderUpdated = s.onOrderUpdated
	return s
}

func (s *smaCross) onBars(bars market.Bars) {
	if !s.slow.Ready() {
		return
	}

	b := s.engine.Broker()
	shares := b.Shares(s.symbol)
	bar, _ := bars.Get(s.symbol)

	switch {
	case shares == 0 && s.fast.Value().Gt(s.slow.Value()):
		quantity, ok := b.Cash().MulInt64(95).DivInt64(100).Div(bar.ClosePrice(false)).Float64()
		if !ok || quantity < 1 {
			return
		}
		order := broker.NewMarketOrder(broker.ActionBuy, s.symbol, int64(quantity), true)
		if err := b.PlaceOrder(order); err != nil {
			s.logger.Warn("place order failed", zap.Error(err))
		}
	case shares > 0 && s.fast.Value().Lt(s.slow.Value()):
		order := broker.NewMarketOrder(broker.ActionSell, s.symbol, shares, true)
		if err := b.PlaceOrder(order); err != nil {
			s.logger.Warn("place order failed", zap.Error(err))
		}
	}
}

func (s *smaCross) onOrderUpdated(update broker.OrderUpdate) {
	o := update.Order
	if info, ok := o.ExecutionInfo(); ok {
		s.logger.Info("order filled",
			zap.Uint64("id", o.ID()),
			zap.String("action", o.Action().String()),
			zap.Int64("quantity", info.Quantity),
			zap.String("price", info.Price.String()))
		return
	}
	s.logger.Info("order canceled", zap.Uint64("id", o.ID()))
}
