package metrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

type Report struct {
	StartDate            time.Time
	EndDate              time.Time
	InitialEquity        fixed.Point
	FinalEquity          fixed.Point
	TotalProfit          fixed.Point
	AnnualizedReturn     fixed.Point
	MaxDrawdown          fixed.Point
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              fixed.Point
	Expectancy           fixed.Point
	ProfitFactor         fixed.Point
	AverageWin           fixed.Point
	AverageLoss          fixed.Point
	RiskRewardRatio      fixed.Point
	AverageTradeDuration time.Duration
	RecoveryFactor       fixed.Point
	TotalCommission      fixed.Point
	SharpeRatio          fixed.Point
	SortinoRatio         fixed.Point
	AnnualizedVolatility fixed.Point
}

// GenerateReport rolls the audited data up. Calling it with no equity
// snapshots recorded is a usage error.
func (a *Audit) GenerateReport() Report {
	report := Report{}

	auditedDays := a.dayCount()
	year := fixed.FromInt64(36500, 2)

	report.InitialEquity = a.equities[0].Value
	report.StartDate = a.equities[0].TimeStamp
	report.FinalEquity = a.equities[len(a.equities)-1].Value
	report.EndDate = a.equities[len(a.equities)-1].TimeStamp
	report.TotalCommission = a.totalCommission

	report.TotalProfit = report.FinalEquity.Div(report.InitialEquity).Sub(fixed.One).MulInt64(100).Rescale(2)
	if auditedDays > 0 && report.InitialEquity.Gt(fixed.Zero) && report.FinalEquity.Gt(fixed.Zero) {
		ratio := report.FinalEquity.Div(report.InitialEquity)
		exponent := year.DivInt64(int64(auditedDays))
		report.AnnualizedReturn = ratio.Pow(exponent).Sub(fixed.One).MulInt64(100).Rescale(2)
	} else {
		report.AnnualizedReturn = fixed.Zero
	}

	maxEquity := report.InitialEquity
	for _, eq := range a.equities {
		if eq.Value.Gt(maxEquity) {
			maxEquity = eq.Value
		}
		drawdown := maxEquity.Sub(eq.Value).Div(maxEquity)
		if drawdown.Gt(report.MaxDrawdown) {
			report.MaxDrawdown = drawdown
		}
	}

	var (
		totalDuration time.Duration
		totalProfit   fixed.Point
		totalLoss     fixed.Point
	)
	for _, trade := range a.trades {
		report.TotalTrades++

		if trade.CloseTime.After(trade.OpenTime) {
			totalDuration += trade.CloseTime.Sub(trade.OpenTime)
		}

		if trade.NetProfit.Gt(fixed.Zero) {
			totalProfit = totalProfit.Add(trade.NetProfit)
			report.WinningTrades++
		} else {
			totalLoss = totalLoss.Add(trade.NetProfit.Neg())
			report.LosingTrades++
		}
	}

	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt64(int64(report.WinningTrades))
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt64(int64(report.LosingTrades))
	}
	if totalLoss.Gt(fixed.Zero) {
		report.ProfitFactor = totalProfit.Div(totalLoss)
	}
	if report.AverageLoss.Gt(fixed.Zero) {
		report.RiskRewardRatio = report.AverageWin.Div(report.AverageLoss)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt64(int64(report.TotalTrades))
		report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)
		report.WinRate = fixed.FromInt64(int64(report.WinningTrades), 0).DivInt64(int64(report.TotalTrades)).MulInt64(100).Rescale(2)
	}
	if report.MaxDrawdown.Gt(fixed.Zero) {
		report.RecoveryFactor = report.TotalProfit.Div(report.MaxDrawdown)
	}
	report.MaxDrawdown = report.MaxDrawdown.MulInt64(100).Rescale(2)

	dailyReturns := a.dailyReturns()
	meanReturn := fixed.Mean(dailyReturns)
	vol := fixed.StdDev(dailyReturns, meanReturn)

	if !meanReturn.IsZero() && !vol.IsZero() {
		report.AnnualizedVolatility = vol.Mul(fixed.Sqrt252).MulInt64(100).Rescale(2)
		report.SharpeRatio = fixed.SharpeRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
		report.SortinoRatio = fixed.SortinoRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
	}

	return report
}

func (a *Audit) dayCount() int {
	if len(a.equities) < 2 {
		return 1
	}
	start := a.equities[0].TimeStamp
	end := a.equities[len(a.equities)-1].TimeStamp
	return int(end.Sub(start).Hours()/24) + 1
}

func (a *Audit) dailyReturns() []fixed.Point {
	var dailyReturns []fixed.Point
	if len(a.equities) < 2 {
		return dailyReturns
	}

	var (
		prevDate   = a.equities[0].TimeStamp.Truncate(24 * time.Hour)
		prevEquity = a.equities[0].Value
	)

	for _, eq := range a.equities[1:] {
		currDate := eq.TimeStamp.Truncate(24 * time.Hour)

		if currDate.After(prevDate) {
			ret := eq.Value.Div(prevEquity).Sub(fixed.One)
			dailyReturns = append(dailyReturns, ret)

			prevDate = currDate
			prevEquity = eq.Value
		}
	}

	return dailyReturns
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("trade report",
		zap.String("initial_equity", r.InitialEquity.String()),
		zap.String("final_equity", r.FinalEquity.String()),
		zap.String("total_profit", fmt.Sprintf("%s%%", r.TotalProfit)),
		zap.String("annualized_return", fmt.Sprintf("%s%%", r.AnnualizedReturn)),
		zap.String("max_drawdown", fmt.Sprintf("%s%%", r.MaxDrawdown)),
		zap.String("recovery_factor", r.RecoveryFactor.String()))

	logger.Info("trade statistics",
		zap.Int("total_trades", r.TotalTrades),
		zap.Int("winning_trades", r.WinningTrades),
		zap.Int("losing_trades", r.LosingTrades),
		zap.String("win_rate", fmt.Sprintf("%s%%", r.WinRate)),
		zap.String("expectancy", r.Expectancy.String()),
		zap.String("profit_factor", r.ProfitFactor.String()),
		zap.String("average_win", r.AverageWin.String()),
		zap.String("average_loss", r.AverageLoss.String()),
		zap.String("total_commission", r.TotalCommission.String()),
		zap.String("average_trade_duration", fmt.Sprintf("%.2fm", r.AverageTradeDuration.Minutes())))

	logger.Info("risk metrics",
		zap.String("sharpe_ratio", r.SharpeRatio.String()),
		zap.String("sortino_ratio", r.SortinoRatio.String()),
		zap.String("annualized_volatility", fmt.Sprintf("%s%%", r.AnnualizedVolatility)))
}
