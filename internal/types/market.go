package types

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one day's OHLCV bar for a ticker.
type PriceBar struct {
	Ticker string    `csv:"ticker" json:"ticker" yaml:"ticker" validate:"required"`
	Date   time.Time `csv:"date" json:"date" yaml:"date" validate:"required"`
	Open   float64   `csv:"open" json:"open" yaml:"open" validate:"gte=0"`
	High   float64   `csv:"high" json:"high" yaml:"high" validate:"gte=0"`
	Low    float64   `csv:"low" json:"low" yaml:"low" validate:"gte=0"`
	Close  float64   `csv:"close" json:"close" yaml:"close" validate:"gte=0"`
	Volume float64   `csv:"volume" json:"volume" yaml:"volume" validate:"gte=0"`
}

// PriceField selects one column group of the pivoted price table.
type PriceField string

const (
	FieldOpen   PriceField = "open"
	FieldHigh   PriceField = "high"
	FieldLow    PriceField = "low"
	FieldClose  PriceField = "close"
	FieldVolume PriceField = "volume"
)

type tickerSeries struct {
	open   []float64
	high   []float64
	low    []float64
	close  []float64
	volume []float64
}

// PriceHistory is a time-indexed pivot of price bars: one row per trading
// day present in the data, one column group per OHLCV field per ticker.
// Days a ticker has no quote for hold NaN, so rolling calculations over a
// gap stay NaN and comparisons against them are false, suppressing signals
// the same way a missing quote would.
//
// UpTo returns a prefix view sharing the backing arrays, which is how the
// engine hands strategies everything up to and including the current day
// without ever exposing later rows.
type PriceHistory struct {
	days    []time.Time
	tickers []string
	series  map[string]*tickerSeries
	length  int
}

// NewPriceHistory pivots rows into a PriceHistory. Rows may arrive in any
// order; days are deduplicated and sorted ascending.
func NewPriceHistory(bars []PriceBar) *PriceHistory {
	dayIndex := make(map[int64]int)
	days := make([]time.Time, 0)

	for _, bar := range bars {
		key := bar.Date.UnixNano()
		if _, ok := dayIndex[key]; !ok {
			dayIndex[key] = 0
			days = append(days, bar.Date)
		}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for i, day := range days {
		dayIndex[day.UnixNano()] = i
	}

	series := make(map[string]*tickerSeries)
	tickers := make([]string, 0)

	for _, bar := range bars {
		s, ok := series[bar.Ticker]
		if !ok {
			s = newTickerSeries(len(days))
			series[bar.Ticker] = s

			tickers = append(tickers, bar.Ticker)
		}

		i := dayIndex[bar.Date.UnixNano()]
		s.open[i] = bar.Open
		s.high[i] = bar.High
		s.low[i] = bar.Low
		s.close[i] = bar.Close
		s.volume[i] = bar.Volume
	}

	slices.Sort(tickers)

	return &PriceHistory{
		days:    days,
		tickers: tickers,
		series:  series,
		length:  len(days),
	}
}

func newTickerSeries(n int) *tickerSeries {
	s := &tickerSeries{
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		s.open[i] = math.NaN()
		s.high[i] = math.NaN()
		s.low[i] = math.NaN()
		s.close[i] = math.NaN()
		s.volume[i] = math.NaN()
	}

	return s
}

// Len returns the number of visible trading days.
func (h *PriceHistory) Len() int {
	return h.length
}

// Days returns the visible trading days in ascending order. The returned
// slice is shared and must not be modified.
func (h *PriceHistory) Days() []time.Time {
	return h.days[:h.length]
}

// Day returns the trading day at index i.
func (h *PriceHistory) Day(i int) time.Time {
	return h.days[i]
}

// Tickers returns all tickers present in the table, sorted.
func (h *PriceHistory) Tickers() []string {
	return h.tickers
}

// HasTicker reports whether the table has a column group for ticker.
func (h *PriceHistory) HasTicker(ticker string) bool {
	_, ok := h.series[ticker]

	return ok
}

// Series returns the visible values of one field for one ticker, aligned
// with Days(). Missing quotes are NaN. Returns nil for an unknown ticker.
func (h *PriceHistory) Series(field PriceField, ticker string) []float64 {
	s, ok := h.series[ticker]
	if !ok {
		return nil
	}

	switch field {
	case FieldOpen:
		return s.open[:h.length]
	case FieldHigh:
		return s.high[:h.length]
	case FieldLow:
		return s.low[:h.length]
	case FieldClose:
		return s.close[:h.length]
	case FieldVolume:
		return s.volume[:h.length]
	default:
		return nil
	}
}

// Close returns the visible close series for ticker.
func (h *PriceHistory) Close(ticker string) []float64 {
	return h.Series(FieldClose, ticker)
}

// CloseAt returns the close of ticker at day index i. The second return is
// false when the ticker has no quote that day.
func (h *PriceHistory) CloseAt(ticker string, i int) (float64, bool) {
	s, ok := h.series[ticker]
	if !ok || i < 0 || i >= h.length {
		return 0, false
	}

	v := s.close[i]
	if math.IsNaN(v) {
		return 0, false
	}

	return v, true
}

// LastClose returns the close of ticker on the most recent visible day.
func (h *PriceHistory) LastClose(ticker string) (float64, bool) {
	if h.length == 0 {
		return 0, false
	}

	return h.CloseAt(ticker, h.length-1)
}

// ClosePricesAt builds the current-price map for day index i: every ticker
// quoted on that day mapped to its close. Tickers without a quote are
// excluded entirely.
func (h *PriceHistory) ClosePricesAt(i int) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)

	for _, ticker := range h.tickers {
		if v, ok := h.CloseAt(ticker, i); ok {
			prices[ticker] = decimal.NewFromFloat(v)
		}
	}

	return prices
}

// UpTo returns a view of the history covering day indices [0, i]. The view
// shares backing arrays with the full table.
func (h *PriceHistory) UpTo(i int) *PriceHistory {
	length := i + 1
	if length > len(h.days) {
		length = len(h.days)
	}

	if length < 0 {
		length = 0
	}

	return &PriceHistory{
		days:    h.days,
		tickers: h.tickers,
		series:  h.series,
		length:  length,
	}
}
