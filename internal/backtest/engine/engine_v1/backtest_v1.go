package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/analytics"
	backtestengine "github.com/vnquant-lab/backtest/internal/backtest/engine"
	"github.com/vnquant-lab/backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/vnquant-lab/backtest/internal/commission_fee"
	"github.com/vnquant-lab/backtest/internal/logger"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/strategy"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// positionSizeRatio is the fraction of remaining cash committed to each
// buy order. It is re-evaluated per order, so sequential buys on the same
// day draw on a shrinking base.
var positionSizeRatio = decimal.NewFromFloat(0.1)

// BacktestEngineV1 drives the day-by-day simulation: it loads the price
// history once, then replays it against each loaded strategy with a fresh
// portfolio per run.
type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	strategies    []strategy.Strategy
	resultsFolder string
	log           *logger.Logger
	source        datasource.PriceSource
}

func NewBacktestEngineV1() backtestengine.Engine {
	return &BacktestEngineV1{
		config:        DefaultConfig(),
		strategies:    nil,
		resultsFolder: "",
		// replaced by the real logger in Initialize; keeps calls made
		// before Initialize from dereferencing nil
		log:    logger.NewNopLogger(),
		source: nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	b.config = cfg
	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.PriceSource) error {
	b.source = source

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	b.strategies = append(b.strategies, s)
	b.log.Debug("Strategy loaded",
		zap.String("strategy", s.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(onDay optional.Option[backtestengine.OnDayCallback]) ([]types.BacktestResult, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	b.log.Info("Starting backtest",
		zap.Time("start", b.config.StartTime),
		zap.Time("end", b.config.EndTime),
		zap.Int("tickers", len(b.config.Tickers)),
		zap.Int("strategies", len(b.strategies)),
	)

	bars, err := b.source.GetPrices(b.config.Tickers, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return nil, err
	}

	history := types.NewPriceHistory(bars)

	results := make([]types.BacktestResult, 0, len(b.strategies))

	for _, s := range b.strategies {
		result := b.runStrategy(s, history, onDay)
		results = append(results, result)

		if b.resultsFolder != "" {
			if err := b.writeResult(result); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// runStrategy replays the loaded history against one strategy. A history
// without any trading day yields an empty result, not an error.
func (b *BacktestEngineV1) runStrategy(s strategy.Strategy, history *types.PriceHistory, onDay optional.Option[backtestengine.OnDayCallback]) types.BacktestResult {
	result := types.BacktestResult{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		Strategy:       s.Name(),
		StartDate:      b.config.StartTime,
		EndDate:        b.config.EndTime,
		InitialCapital: b.config.InitialCapital,
		FinalValue:     optional.None[float64](),
		TotalReturn:    optional.None[float64](),
		Statistics:     types.Statistics{},
		EquityCurve:    nil,
		Trades:         nil,
		Performance:    optional.None[types.PerformanceMetrics](),
	}

	if history.Len() == 0 {
		b.log.Error("No price data available for backtest",
			zap.String("strategy", s.Name()),
		)

		return result
	}

	initialCapital := decimal.NewFromFloat(b.config.InitialCapital)
	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.CommissionRate)
	pf := portfolio.New(initialCapital, commission, b.log)

	for i := 0; i < history.Len(); i++ {
		day := history.Day(i)
		currentPrices := history.ClosePricesAt(i)

		// The slice handed to the strategy ends at today; rows after i are
		// unreachable through the view.
		signals, err := s.Signals(history.UpTo(i), pf, currentPrices)
		if err != nil {
			b.log.Warn("Strategy failed, dropping signals for the day",
				zap.String("strategy", s.Name()),
				zap.Time("day", day),
				zap.Error(err),
			)

			signals = nil
		}

		b.executeSignals(pf, signals, day, currentPrices)

		value := pf.TotalValue(currentPrices)
		pf.RecordEquity(types.EquityPoint{
			Date:      day,
			Value:     value.InexactFloat64(),
			Cash:      pf.Cash().InexactFloat64(),
			Positions: pf.OpenPositionCount(),
		})

		if onDay.IsSome() {
			onDay.Unwrap()(i+1, history.Len())
		}
	}

	b.liquidate(pf, history)

	finalValue := pf.TotalValue(map[string]decimal.Decimal{})
	totalReturn := finalValue.Sub(initialCapital).Div(initialCapital)

	trades := make([]types.TradeRecord, 0, len(pf.ClosedPositions()))
	for _, position := range pf.ClosedPositions() {
		trades = append(trades, position.ToTrade())
	}

	result.FinalValue = optional.Some(finalValue.InexactFloat64())
	result.TotalReturn = optional.Some(totalReturn.InexactFloat64())
	result.Statistics = pf.Statistics()
	result.EquityCurve = pf.EquityCurve()
	result.Trades = trades
	result.Performance = analytics.Calculate(pf.EquityCurve(), b.config.RiskFreeRate)

	b.log.Info("Backtest complete",
		zap.String("strategy", s.Name()),
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.String("final_value", finalValue.String()),
		zap.String("total_return", totalReturn.String()),
	)

	return result
}

// executeSignals runs the day's signals against the portfolio in the
// order the strategy emitted them. Tickers without a quote today are
// skipped; rejected orders are logged by the portfolio and skipped.
func (b *BacktestEngineV1) executeSignals(pf *portfolio.Portfolio, signals []types.Signal, day time.Time, currentPrices map[string]decimal.Decimal) {
	for _, signal := range signals {
		price, ok := currentPrices[signal.Ticker]
		if !ok {
			continue
		}

		switch signal.Type {
		case types.SignalTypeBuy:
			positionSize := pf.Cash().Mul(positionSizeRatio)

			shares := positionSize.Div(price).IntPart()
			if shares > 0 {
				pf.Buy(signal.Ticker, day, price, shares)
			}
		case types.SignalTypeSell:
			pf.Sell(signal.Ticker, day, price, optional.None[int64]())
		case types.SignalTypeHold:
			// no action
		}
	}
}

// liquidate force-sells every position whose ticker still has a quote on
// the last loaded day, dated at the requested end of the backtest.
// Positions without a final quote stay open and drop out of the final
// value.
func (b *BacktestEngineV1) liquidate(pf *portfolio.Portfolio, history *types.PriceHistory) {
	lastIndex := history.Len() - 1

	for _, ticker := range pf.OpenTickers() {
		price, ok := history.CloseAt(ticker, lastIndex)
		if !ok {
			b.log.Warn("No final quote, position stays open and is excluded from final value",
				zap.String("ticker", ticker),
			)

			continue
		}

		pf.Sell(ticker, b.config.EndTime, decimal.NewFromFloat(price), optional.None[int64]())
	}
}

func (b *BacktestEngineV1) writeResult(result types.BacktestResult) error {
	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	path := filepath.Join(b.resultsFolder, fmt.Sprintf("%s_result.yaml", result.Strategy))
	if err := types.WriteResult(path, result); err != nil {
		return fmt.Errorf("failed to write result for %s: %w", result.Strategy, err)
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if b.source == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}
