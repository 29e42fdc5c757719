package datasource

import (
	"sort"
	"time"

	"github.com/vnquant-lab/backtest/internal/types"
)

// InMemoryPriceSource serves bars from a slice. Used by tests and by
// callers that fetch data themselves before running the engine.
type InMemoryPriceSource struct {
	bars []types.PriceBar
}

// NewInMemoryPriceSource creates a source over the given bars.
func NewInMemoryPriceSource(bars []types.PriceBar) PriceSource {
	return &InMemoryPriceSource{
		bars: bars,
	}
}

// Initialize implements PriceSource. The data is already in memory, so
// the path is ignored.
func (s *InMemoryPriceSource) Initialize(path string) error {
	return nil
}

// GetPrices implements PriceSource.
func (s *InMemoryPriceSource) GetPrices(tickers []string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	wanted := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		wanted[ticker] = true
	}

	var result []types.PriceBar

	for _, bar := range s.bars {
		if !wanted[bar.Ticker] {
			continue
		}

		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}

		result = append(result, bar)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}

		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// Count implements PriceSource.
func (s *InMemoryPriceSource) Count(tickers []string, start time.Time, end time.Time) (int, error) {
	bars, err := s.GetPrices(tickers, start, end)
	if err != nil {
		return 0, err
	}

	return len(bars), nil
}

// Close implements PriceSource.
func (s *InMemoryPriceSource) Close() error {
	return nil
}
