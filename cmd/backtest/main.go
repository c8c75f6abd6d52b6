package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/broker"
	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/feed/csvfeed"
	"github.com/tradeloop-dev/tradeloop/pkg/metrics"
	"github.com/tradeloop-dev/tradeloop/pkg/strategy"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := csvfeed.NewSource(BarDataSource, Instrument, csvfeed.WithAdjClose())
	barFeed := feed.NewBarFeed(logger, source, feed.WithAdjClose())

	b := broker.New(logger, fixed.FromInt64(StartingCash, 0), barFeed,
		broker.WithCommission(broker.NewPercentageCommission(fixed.MustFromString(CommissionRate))))

	engine, err := strategy.NewEngine(logger, barFeed, b)
	if err != nil {
		logger.Fatal("engine setup failed", zap.Error(err))
	}

	newSmaCross(logger, engine, Instrument, FastWindow, SlowWindow)
	audit := metrics.NewAudit(barFeed, b)

	if err := engine.Run(ctx); err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	audit.GenerateReport().Print(logger)
}
