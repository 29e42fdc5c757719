package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/indicator"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MeanReversion trades Bollinger-band reversals: buys when the close
// drops below the lower band, sells the held position when it rises above
// the upper band.
type MeanReversion struct {
	Window       int     `yaml:"window"`
	StdThreshold float64 `yaml:"std_threshold"`
}

// NewMeanReversion creates the strategy with the default 20-day window and
// 2.0 standard deviation bands.
func NewMeanReversion() Strategy {
	return &MeanReversion{
		Window:       20,
		StdThreshold: 2.0,
	}
}

// Name implements Strategy.
func (s *MeanReversion) Name() string {
	return NameMeanReversion
}

// Initialize implements Strategy.
func (s *MeanReversion) Initialize(config string) error {
	if config == "" {
		return nil
	}

	if err := yaml.Unmarshal([]byte(config), s); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse mean reversion config", err)
	}

	if s.Window <= 1 || s.StdThreshold <= 0 {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"invalid parameters: window=%d std_threshold=%f", s.Window, s.StdThreshold)
	}

	return nil
}

// Signals implements Strategy.
func (s *MeanReversion) Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
	if history.Len() < s.Window {
		return nil, nil
	}

	var signals []types.Signal

	for _, ticker := range quotedTickers(history, currentPrices) {
		closes := history.Close(ticker)

		mean := indicator.RollingMean(closes, s.Window)
		std := indicator.RollingStd(closes, s.Window)

		last := len(closes) - 1
		upper := mean[last] + std[last]*s.StdThreshold
		lower := mean[last] - std[last]*s.StdThreshold
		price := closes[last]

		hasPosition := view.HasOpenPosition(ticker)

		switch {
		case price < lower && !hasPosition:
			signals = append(signals, types.Signal{
				Ticker: ticker,
				Type:   types.SignalTypeBuy,
				Reason: "oversold",
			})
		case price > upper && hasPosition:
			signals = append(signals, types.Signal{
				Ticker: ticker,
				Type:   types.SignalTypeSell,
				Reason: "overbought",
			})
		}
	}

	return signals, nil
}
