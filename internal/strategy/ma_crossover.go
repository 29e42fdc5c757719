package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/indicator"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MovingAverageCrossover buys when the short moving average crosses above
// the long one and sells the held position when it crosses back below.
type MovingAverageCrossover struct {
	ShortWindow int `yaml:"short_window"`
	LongWindow  int `yaml:"long_window"`
}

// NewMovingAverageCrossover creates the strategy with the default 20/50
// windows.
func NewMovingAverageCrossover() Strategy {
	return &MovingAverageCrossover{
		ShortWindow: 20,
		LongWindow:  50,
	}
}

// Name implements Strategy.
func (s *MovingAverageCrossover) Name() string {
	return NameMovingAverage
}

// Initialize implements Strategy.
func (s *MovingAverageCrossover) Initialize(config string) error {
	if config == "" {
		return nil
	}

	if err := yaml.Unmarshal([]byte(config), s); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse ma crossover config", err)
	}

	if s.ShortWindow <= 0 || s.LongWindow <= 0 || s.ShortWindow >= s.LongWindow {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"invalid windows: short=%d long=%d", s.ShortWindow, s.LongWindow)
	}

	return nil
}

// Signals implements Strategy.
func (s *MovingAverageCrossover) Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
	if history.Len() < s.LongWindow {
		return nil, nil
	}

	var signals []types.Signal

	for _, ticker := range quotedTickers(history, currentPrices) {
		closes := history.Close(ticker)
		if len(closes) < 2 {
			continue
		}

		shortMA := indicator.RollingMean(closes, s.ShortWindow)
		longMA := indicator.RollingMean(closes, s.LongWindow)

		last := len(closes) - 1
		currShort, currLong := shortMA[last], longMA[last]
		prevShort, prevLong := shortMA[last-1], longMA[last-1]

		// NaN from a gap or a warm-up window fails every comparison, so
		// no signal fires.
		hasPosition := view.HasOpenPosition(ticker)

		switch {
		case prevShort <= prevLong && currShort > currLong:
			if !hasPosition {
				signals = append(signals, types.Signal{
					Ticker: ticker,
					Type:   types.SignalTypeBuy,
					Reason: "MA crossover",
				})
			}
		case prevShort >= prevLong && currShort < currLong:
			if hasPosition {
				signals = append(signals, types.Signal{
					Ticker: ticker,
					Type:   types.SignalTypeSell,
					Reason: "MA crossunder",
				})
			}
		}
	}

	return signals, nil
}
