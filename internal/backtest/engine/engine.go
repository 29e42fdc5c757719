package engine

import (
	"github.com/moznion/go-optional"
	"github.com/vnquant-lab/backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/vnquant-lab/backtest/internal/strategy"
	"github.com/vnquant-lab/backtest/internal/types"
)

// OnDayCallback reports progress through the trading-day loop: current is
// the number of days processed so far, total the number of days in the run.
type OnDayCallback func(current int, total int)

// Engine replays historical prices against loaded strategies and produces
// one BacktestResult per strategy. Engines are single-use: configure,
// run, read the results.
type Engine interface {
	// Initialize parses and validates the YAML engine configuration.
	Initialize(config string) error
	// SetDataSource sets the historical price source.
	SetDataSource(source datasource.PriceSource) error
	// LoadStrategy adds a strategy to the run. Strategies run sequentially,
	// each against a fresh portfolio.
	LoadStrategy(s strategy.Strategy) error
	// SetResultsFolder sets the folder result files are written to.
	// Leaving it unset skips writing.
	SetResultsFolder(folder string) error
	// Run executes the backtest for every loaded strategy.
	Run(onDay optional.Option[OnDayCallback]) ([]types.BacktestResult, error)
}
