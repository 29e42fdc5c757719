package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vnquant-lab/backtest/internal/types"
)

type PerformanceTestSuite struct {
	suite.Suite
}

func TestPerformanceSuite(t *testing.T) {
	suite.Run(t, new(PerformanceTestSuite))
}

func point(d int, value float64) types.EquityPoint {
	return types.EquityPoint{
		Date:  time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
		Value: value,
	}
}

func (suite *PerformanceTestSuite) TestTooFewPointsReturnsNone() {
	suite.True(Calculate(nil, 0.03).IsNone())
	suite.True(Calculate([]types.EquityPoint{point(1, 100)}, 0.03).IsNone())
}

func (suite *PerformanceTestSuite) TestFlatCurve() {
	equity := []types.EquityPoint{point(1, 100), point(2, 100), point(3, 100)}

	metrics := Calculate(equity, 0.03)
	suite.True(metrics.IsSome())

	m := metrics.Unwrap()
	suite.Zero(m.AnnualizedReturn)
	suite.Zero(m.Volatility)
	// zero volatility forces the Sharpe ratio to zero instead of -Inf
	suite.Zero(m.SharpeRatio)
	suite.Zero(m.MaxDrawdown)
}

func (suite *PerformanceTestSuite) TestAnnualizedReturnOverOneYear() {
	equity := []types.EquityPoint{
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC), Value: 105},
		{Date: time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), Value: 110},
	}

	m := Calculate(equity, 0.0).Unwrap()
	// 10% over exactly 365.25 days annualizes to 10%
	suite.InDelta(0.10, m.AnnualizedReturn, 1e-9)
	suite.Greater(m.Volatility, 0.0)
	suite.Greater(m.SharpeRatio, 0.0)
}

func (suite *PerformanceTestSuite) TestMaxDrawdown() {
	equity := []types.EquityPoint{
		point(1, 100),
		point(2, 120),
		point(3, 90),
		point(4, 110),
		point(5, 130),
		point(6, 125),
	}

	m := Calculate(equity, 0.03).Unwrap()
	suite.InDelta(-0.25, m.MaxDrawdown, 1e-9)
	suite.True(m.PeakDate.Equal(point(2, 0).Date))
	suite.True(m.TroughDate.Equal(point(3, 0).Date))
}

func (suite *PerformanceTestSuite) TestVolatilityIsAnnualizedDailyStd() {
	equity := []types.EquityPoint{
		point(1, 100),
		point(2, 110),
		point(3, 99),
	}

	m := Calculate(equity, 0.03).Unwrap()

	r1 := 0.1
	r2 := (99.0 - 110.0) / 110.0
	mean := (r1 + r2) / 2
	std := math.Sqrt(((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) / 2)
	suite.InDelta(std*math.Sqrt(252), m.Volatility, 1e-9)
}

func (suite *PerformanceTestSuite) TestZeroValuePointsDoNotDivideByZero() {
	equity := []types.EquityPoint{point(1, 0), point(2, 100), point(3, 50)}

	metrics := Calculate(equity, 0.03)
	suite.True(metrics.IsSome())

	m := metrics.Unwrap()
	suite.False(math.IsNaN(m.AnnualizedReturn))
	suite.False(math.IsInf(m.AnnualizedReturn, 0))
	suite.False(math.IsNaN(m.MaxDrawdown))
}
