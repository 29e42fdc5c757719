// Package strategy defines the signal-generation contract consumed by the
// backtest engine and ships the built-in reference strategies.
package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
)

// Strategy turns one day's state into trading signals. The engine calls
// Signals once per trading day with the price history up to and including
// that day, a read-only portfolio view, and the closes of every ticker
// quoted that day. Implementations must not retain or mutate the history.
//
// A returned error drops that day's signals and the simulation continues;
// it never aborts the run.
type Strategy interface {
	// Name identifies the strategy in results and log output.
	Name() string
	// Initialize configures the strategy from a YAML document. An empty
	// document keeps the defaults.
	Initialize(config string) error
	// Signals produces the day's trading instructions in execution order.
	Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error)
}

// SignalFunc is the plain-function form of the contract.
type SignalFunc func(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error)

// Func adapts a SignalFunc into a Strategy, for callers that want to pass
// an arbitrary callable at run time.
type Func struct {
	name string
	fn   SignalFunc
}

// NewFunc wraps fn as a named Strategy.
func NewFunc(name string, fn SignalFunc) Strategy {
	return &Func{
		name: name,
		fn:   fn,
	}
}

// Name implements Strategy.
func (f *Func) Name() string {
	return f.name
}

// Initialize implements Strategy. Function strategies carry their own
// configuration; the document is ignored.
func (f *Func) Initialize(config string) error {
	return nil
}

// Signals implements Strategy.
func (f *Func) Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
	return f.fn(history, view, currentPrices)
}

// Built-in strategy names accepted by NewFromName.
const (
	NameMovingAverage = "ma"
	NameMomentum      = "momentum"
	NameMeanReversion = "mean_reversion"
	NameBuyAndHold    = "buy_hold"
)

// AllNames returns the built-in strategy names.
func AllNames() []string {
	return []string{NameMovingAverage, NameMomentum, NameMeanReversion, NameBuyAndHold}
}

// NewFromName returns a fresh built-in strategy with default parameters.
func NewFromName(name string) (Strategy, error) {
	switch name {
	case NameMovingAverage:
		return NewMovingAverageCrossover(), nil
	case NameMomentum:
		return NewMomentum(), nil
	case NameMeanReversion:
		return NewMeanReversion(), nil
	case NameBuyAndHold:
		return NewBuyAndHold(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy: %s", name)
	}
}

// quotedTickers returns the tickers with a quote today in sorted order, so
// signal order (and with it same-day position sizing) is deterministic.
func quotedTickers(history *types.PriceHistory, currentPrices map[string]decimal.Decimal) []string {
	tickers := make([]string, 0, len(currentPrices))

	for _, ticker := range history.Tickers() {
		if _, ok := currentPrices[ticker]; ok {
			tickers = append(tickers, ticker)
		}
	}

	return tickers
}
