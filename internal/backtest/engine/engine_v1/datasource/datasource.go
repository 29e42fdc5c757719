package datasource

import (
	"time"

	"github.com/vnquant-lab/backtest/internal/types"
)

// PriceSource supplies historical daily bars. The engine requires rows
// sorted ascending by date; calendar gaps are preserved, never filled.
type PriceSource interface {
	// Initialize points the source at its backing data (a file path for
	// file-based sources).
	Initialize(path string) error
	// GetPrices returns the bars for the given tickers within
	// [start, end], sorted by date then ticker.
	GetPrices(tickers []string, start time.Time, end time.Time) ([]types.PriceBar, error)
	// Count returns the number of bars GetPrices would return.
	Count(tickers []string, start time.Time, end time.Time) (int, error)
	// Close releases any resources held by the source.
	Close() error
}
