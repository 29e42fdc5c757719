package strategy

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/indicator"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Momentum rotates the portfolio into the top-N tickers by trailing
// return: buys top performers not yet held, sells holdings that dropped
// out of the top set.
type Momentum struct {
	Lookback int `yaml:"lookback"`
	TopN     int `yaml:"top_n"`
}

// NewMomentum creates the strategy with the default 20-day lookback over
// the top 5 tickers.
func NewMomentum() Strategy {
	return &Momentum{
		Lookback: 20,
		TopN:     5,
	}
}

// Name implements Strategy.
func (s *Momentum) Name() string {
	return NameMomentum
}

// Initialize implements Strategy.
func (s *Momentum) Initialize(config string) error {
	if config == "" {
		return nil
	}

	if err := yaml.Unmarshal([]byte(config), s); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse momentum config", err)
	}

	if s.Lookback <= 0 || s.TopN <= 0 {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"invalid parameters: lookback=%d top_n=%d", s.Lookback, s.TopN)
	}

	return nil
}

// Signals implements Strategy.
func (s *Momentum) Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
	if history.Len() < s.Lookback {
		return nil, nil
	}

	type score struct {
		ticker   string
		momentum float64
	}

	var scores []score

	for _, ticker := range quotedTickers(history, currentPrices) {
		momentum := indicator.RateOfChange(history.Close(ticker), s.Lookback)
		if math.IsNaN(momentum) {
			continue
		}

		scores = append(scores, score{ticker: ticker, momentum: momentum})
	}

	if len(scores) == 0 {
		return nil, nil
	}

	// Stable sort on top of the sorted ticker iteration keeps ties
	// deterministic.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].momentum > scores[j].momentum
	})

	topN := s.TopN
	if topN > len(scores) {
		topN = len(scores)
	}

	top := make(map[string]bool, topN)

	var signals []types.Signal

	for _, sc := range scores[:topN] {
		top[sc.ticker] = true

		if !view.HasOpenPosition(sc.ticker) {
			signals = append(signals, types.Signal{
				Ticker: sc.ticker,
				Type:   types.SignalTypeBuy,
				Reason: "high momentum",
			})
		}
	}

	for _, ticker := range view.OpenTickers() {
		if !top[ticker] {
			signals = append(signals, types.Signal{
				Ticker: ticker,
				Type:   types.SignalTypeSell,
				Reason: "low momentum",
			})
		}
	}

	return signals, nil
}
