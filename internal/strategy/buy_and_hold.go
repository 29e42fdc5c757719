package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/portfolio"
	"github.com/vnquant-lab/backtest/internal/types"
)

// BuyAndHold buys every quoted ticker on the first day the portfolio is
// empty and then does nothing; the engine's final liquidation realizes
// the result.
type BuyAndHold struct{}

// NewBuyAndHold creates the strategy.
func NewBuyAndHold() Strategy {
	return &BuyAndHold{}
}

// Name implements Strategy.
func (s *BuyAndHold) Name() string {
	return NameBuyAndHold
}

// Initialize implements Strategy. There are no parameters.
func (s *BuyAndHold) Initialize(config string) error {
	return nil
}

// Signals implements Strategy.
func (s *BuyAndHold) Signals(history *types.PriceHistory, view portfolio.View, currentPrices map[string]decimal.Decimal) ([]types.Signal, error) {
	if view.OpenPositionCount() > 0 {
		return nil, nil
	}

	var signals []types.Signal

	for _, ticker := range quotedTickers(history, currentPrices) {
		signals = append(signals, types.Signal{
			Ticker: ticker,
			Type:   types.SignalTypeBuy,
			Reason: "buy and hold",
		})
	}

	return signals, nil
}
