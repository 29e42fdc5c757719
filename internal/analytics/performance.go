// Package analytics computes return/risk metrics from a backtest equity
// curve.
package analytics

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/vnquant-lab/backtest/internal/types"
)

// TradingDaysPerYear is the annualization factor for daily series.
const TradingDaysPerYear = 252

// Calculate derives performance metrics from a daily equity curve.
// Returns None when the curve has fewer than two points.
func Calculate(equity []types.EquityPoint, riskFreeRate float64) optional.Option[types.PerformanceMetrics] {
	if len(equity) < 2 {
		return optional.None[types.PerformanceMetrics]()
	}

	first := equity[0]
	last := equity[len(equity)-1]

	dailyReturns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			continue
		}

		dailyReturns = append(dailyReturns, (equity[i].Value-prev)/prev)
	}

	totalReturn := 0.0
	if first.Value != 0 {
		totalReturn = (last.Value - first.Value) / first.Value
	}

	annualizedReturn := 0.0

	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25
	if years > 0 {
		annualizedReturn = math.Pow(1+totalReturn, 1/years) - 1
	}

	volatility := populationStd(dailyReturns) * math.Sqrt(TradingDaysPerYear)

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (annualizedReturn - riskFreeRate) / volatility
	}

	maxDrawdown, peakDate, troughDate := maxDrawdown(equity)

	return optional.Some(types.PerformanceMetrics{
		AnnualizedReturn: annualizedReturn,
		Volatility:       volatility,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDrawdown,
		PeakDate:         peakDate,
		TroughDate:       troughDate,
	})
}

// maxDrawdown finds the deepest fall from a running peak. The returned
// drawdown is zero or negative.
func maxDrawdown(equity []types.EquityPoint) (drawdown float64, peakDate, troughDate time.Time) {
	peak := equity[0]
	worst := 0.0
	worstPeak := equity[0]
	worstTrough := equity[0]

	for _, point := range equity[1:] {
		if point.Value > peak.Value {
			peak = point

			continue
		}

		if peak.Value == 0 {
			continue
		}

		dd := (point.Value - peak.Value) / peak.Value
		if dd < worst {
			worst = dd
			worstPeak = peak
			worstTrough = point
		}
	}

	return worst, worstPeak.Date, worstTrough.Date
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	sumSq := 0.0

	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
}
