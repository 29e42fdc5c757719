package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	backtestengine "github.com/vnquant-lab/backtest/internal/backtest/engine"
	"github.com/vnquant-lab/backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/strategy"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
)

const testConfig = `
initial_capital: 10000
commission_rate: 0
broker: zero_commission
tickers:
  - AAA
  - BBB
start_time: 2024-01-01T00:00:00Z
end_time: 2024-01-31T00:00:00Z
`

type BacktestV1TestSuite struct {
	suite.Suite
}

func TestBacktestV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestV1TestSuite))
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bar(ticker string, d int, close float64) types.PriceBar {
	return types.PriceBar{
		Ticker: ticker,
		Date:   day(d),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1000,
	}
}

func (suite *BacktestV1TestSuite) newEngine(bars []types.PriceBar, strategies ...strategy.Strategy) backtestengine.Engine {
	engine := NewBacktestEngineV1()
	suite.NoError(engine.Initialize(testConfig))
	suite.NoError(engine.SetDataSource(datasource.NewInMemoryPriceSource(bars)))

	for _, s := range strategies {
		suite.NoError(engine.LoadStrategy(s))
	}

	return engine
}

func (suite *BacktestV1TestSuite) TestInitializeRejectsBadConfig() {
	tests := []struct {
		name   string
		config string
		code   errors.ErrorCode
	}{
		{
			name:   "malformed yaml",
			config: "initial_capital: [",
			code:   errors.ErrCodeBacktestConfigError,
		},
		{
			name:   "missing tickers",
			config: "initial_capital: 1000\nstart_time: 2024-01-01T00:00:00Z\nend_time: 2024-01-31T00:00:00Z",
			code:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:   "end before start",
			config: "initial_capital: 1000\ntickers: [AAA]\nstart_time: 2024-01-31T00:00:00Z\nend_time: 2024-01-01T00:00:00Z",
			code:   errors.ErrCodeInvalidDateRange,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			engine := NewBacktestEngineV1()
			err := engine.Initialize(tc.config)
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *BacktestV1TestSuite) TestCallsBeforeInitializeDoNotPanic() {
	engine := NewBacktestEngineV1()

	suite.NotPanics(func() {
		suite.NoError(engine.LoadStrategy(strategy.NewBuyAndHold()))
		suite.NoError(engine.SetResultsFolder(suite.T().TempDir()))
	})
}

func (suite *BacktestV1TestSuite) TestRunRequiresStrategyAndSource() {
	engine := NewBacktestEngineV1()
	suite.NoError(engine.Initialize(testConfig))

	_, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoStrategies))

	suite.NoError(engine.LoadStrategy(strategy.NewBuyAndHold()))

	_, err = engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDatasource))
}

func (suite *BacktestV1TestSuite) TestBuyAndHoldReturnTracksPriceRatio() {
	// only the first and last closes matter; the noise between never trades
	bars := []types.PriceBar{
		bar("AAA", 2, 10),
		bar("AAA", 3, 30),
		bar("AAA", 4, 5),
		bar("AAA", 5, 20),
	}

	engine := suite.newEngine(bars, strategy.NewBuyAndHold())

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)
	suite.Len(results, 1)

	result := results[0]
	suite.False(result.IsEmpty())

	// 10% of 10,000 buys 100 shares at 10; liquidation sells them at 20
	suite.InDelta(11000.0, result.FinalValue.Unwrap(), 1e-9)
	suite.InDelta(0.1, result.TotalReturn.Unwrap(), 1e-9)
	suite.Equal(1, result.Statistics.TotalTrades)
	suite.Len(result.EquityCurve, 4)

	// the forced final sell is dated at the configured end of the backtest
	suite.True(result.Trades[0].ExitDate.Equal(day(31)))
	suite.InDelta(1000.0, result.Trades[0].PnL, 1e-9)
}

func (suite *BacktestV1TestSuite) TestStrategyNeverSeesFutureRows() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("AAA", 2, 11),
		bar("AAA", 3, 12),
	}

	var seenLengths []int

	probe := strategy.NewFunc("probe", func(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
		seenLengths = append(seenLengths, history.Len())

		last, ok := history.LastClose("AAA")
		suite.True(ok)
		suite.True(currentPrices["AAA"].Equal(decimal.NewFromFloat(last)))

		return nil, nil
	})

	engine := suite.newEngine(bars, probe)

	_, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)
	suite.Equal([]int{1, 2, 3}, seenLengths)
}

func (suite *BacktestV1TestSuite) TestSameDayBuysUseShrinkingCash() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("BBB", 1, 10),
		bar("AAA", 2, 10),
		bar("BBB", 2, 10),
	}

	buyOnce := strategy.NewFunc("buy_once", func(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
		if history.Len() > 1 {
			return nil, nil
		}

		return []types.Signal{
			{Ticker: "AAA", Type: types.SignalTypeBuy},
			{Ticker: "BBB", Type: types.SignalTypeBuy},
		}, nil
	})

	engine := suite.newEngine(bars, buyOnce)

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)

	// first buy: 10% of 10,000 -> 100 shares; second: 10% of 9,000 -> 90
	trades := results[0].Trades
	suite.Len(trades, 2)

	shares := map[string]int64{}
	for _, trade := range trades {
		shares[trade.Ticker] = trade.Shares
	}

	suite.Equal(int64(100), shares["AAA"])
	suite.Equal(int64(90), shares["BBB"])
}

func (suite *BacktestV1TestSuite) TestStrategyErrorDropsOnlyThatDay() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("AAA", 2, 10),
	}

	flaky := strategy.NewFunc("flaky", func(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
		if history.Len() == 1 {
			return nil, errors.New(errors.ErrCodeStrategyRuntimeError, "bad day")
		}

		return []types.Signal{{Ticker: "AAA", Type: types.SignalTypeBuy}}, nil
	})

	engine := suite.newEngine(bars, flaky)

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)

	result := results[0]
	suite.False(result.IsEmpty())
	// the failed day still produced an equity sample
	suite.Len(result.EquityCurve, 2)
	suite.Equal(1, result.Statistics.TotalTrades)
}

func (suite *BacktestV1TestSuite) TestNoDataYieldsEmptyResult() {
	engine := suite.newEngine(nil, strategy.NewBuyAndHold())

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)
	suite.Len(results, 1)

	result := results[0]
	suite.True(result.IsEmpty())
	suite.True(result.FinalValue.IsNone())
	suite.True(result.TotalReturn.IsNone())
	suite.Empty(result.EquityCurve)
	suite.Equal(types.Statistics{}, result.Statistics)
}

func (suite *BacktestV1TestSuite) TestLiquidationSkipsTickerWithoutFinalQuote() {
	// BBB never quotes on the last day, so its position stays open and its
	// value drops out of the final tally
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("BBB", 1, 10),
		bar("AAA", 2, 10),
	}

	engine := suite.newEngine(bars, strategy.NewBuyAndHold())

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)

	result := results[0]
	suite.Len(result.Trades, 1)
	suite.Equal("AAA", result.Trades[0].Ticker)

	// cash after the two buys is 8,100; only AAA's 100 shares come back
	suite.InDelta(9100.0, result.FinalValue.Unwrap(), 1e-9)
}

func (suite *BacktestV1TestSuite) TestRunEachStrategyIndependently() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("AAA", 2, 20),
	}

	engine := suite.newEngine(bars, strategy.NewBuyAndHold(), strategy.NewMeanReversion())

	results, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)
	suite.Len(results, 2)
	suite.Equal(strategy.NameBuyAndHold, results[0].Strategy)
	suite.Equal(strategy.NameMeanReversion, results[1].Strategy)
	suite.NotEqual(results[0].ID, results[1].ID)

	// an idle strategy ends exactly at its starting capital
	suite.InDelta(10000.0, results[1].FinalValue.Unwrap(), 1e-9)
	suite.Zero(results[1].Statistics.TotalTrades)
}

func (suite *BacktestV1TestSuite) TestOnDayCallback() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("AAA", 2, 11),
		bar("AAA", 3, 12),
	}

	engine := suite.newEngine(bars, strategy.NewBuyAndHold())

	var calls [][2]int

	onDay := optional.Some(backtestengine.OnDayCallback(func(current, total int) {
		calls = append(calls, [2]int{current, total})
	}))

	_, err := engine.Run(onDay)
	suite.NoError(err)
	suite.Equal([][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func (suite *BacktestV1TestSuite) TestResultsFolderGetsOneFilePerStrategy() {
	bars := []types.PriceBar{
		bar("AAA", 1, 10),
		bar("AAA", 2, 20),
	}

	folder := filepath.Join(suite.T().TempDir(), "results")

	engine := suite.newEngine(bars, strategy.NewBuyAndHold())
	suite.NoError(engine.SetResultsFolder(folder))

	_, err := engine.Run(optional.None[backtestengine.OnDayCallback]())
	suite.NoError(err)

	data, err := os.ReadFile(filepath.Join(folder, "buy_hold_result.yaml"))
	suite.NoError(err)
	suite.Contains(string(data), "final_value")
}
