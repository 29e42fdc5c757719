package types

import (
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Statistics summarizes the closed trades of one backtest run. All fields
// are zero-valued (never NaN) when there are no closed trades.
type Statistics struct {
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	TotalPnL      float64 `yaml:"total_pnl" json:"total_pnl"`
	TotalPnLPct   float64 `yaml:"total_pnl_pct" json:"total_pnl_pct"`
	AvgPnL        float64 `yaml:"avg_pnl" json:"avg_pnl"`
	AvgWin        float64 `yaml:"avg_win" json:"avg_win"`
	AvgLoss       float64 `yaml:"avg_loss" json:"avg_loss"`
	ProfitFactor  float64 `yaml:"profit_factor" json:"profit_factor"`
}

// EquityPoint is one daily sample of total portfolio value.
type EquityPoint struct {
	Date      time.Time `yaml:"date" json:"date"`
	Value     float64   `yaml:"value" json:"value"`
	Cash      float64   `yaml:"cash" json:"cash"`
	Positions int       `yaml:"positions" json:"positions"`
}

// TradeRecord is the report form of a closed position, serialized with
// native numeric types.
type TradeRecord struct {
	Ticker       string       `yaml:"ticker" json:"ticker"`
	EntryDate    time.Time    `yaml:"entry_date" json:"entry_date"`
	EntryPrice   float64      `yaml:"entry_price" json:"entry_price"`
	ExitDate     time.Time    `yaml:"exit_date" json:"exit_date"`
	ExitPrice    float64      `yaml:"exit_price" json:"exit_price"`
	Shares       int64        `yaml:"shares" json:"shares"`
	PositionType PositionType `yaml:"position_type" json:"position_type"`
	PnL          float64      `yaml:"pnl" json:"pnl"`
	PnLPct       float64      `yaml:"pnl_pct" json:"pnl_pct"`
}

// PerformanceMetrics holds equity-curve risk/return metrics.
type PerformanceMetrics struct {
	AnnualizedReturn float64   `yaml:"annualized_return" json:"annualized_return"`
	Volatility       float64   `yaml:"volatility" json:"volatility"`
	SharpeRatio      float64   `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown      float64   `yaml:"max_drawdown" json:"max_drawdown"`
	PeakDate         time.Time `yaml:"peak_date" json:"peak_date"`
	TroughDate       time.Time `yaml:"trough_date" json:"trough_date"`
}

// BacktestResult is the immutable output of one run. FinalValue and
// TotalReturn are None for an empty run (no price data in range); callers
// must check IsEmpty before reading them.
type BacktestResult struct {
	ID             string                               `yaml:"id" json:"id"`
	Timestamp      time.Time                            `yaml:"timestamp" json:"timestamp"`
	Strategy       string                               `yaml:"strategy" json:"strategy"`
	StartDate      time.Time                            `yaml:"start_date" json:"start_date"`
	EndDate        time.Time                            `yaml:"end_date" json:"end_date"`
	InitialCapital float64                              `yaml:"initial_capital" json:"initial_capital"`
	FinalValue     optional.Option[float64]             `yaml:"final_value" json:"final_value"`
	TotalReturn    optional.Option[float64]             `yaml:"total_return" json:"total_return"`
	Statistics     Statistics                           `yaml:"statistics" json:"statistics"`
	EquityCurve    []EquityPoint                        `yaml:"equity_curve" json:"equity_curve"`
	Trades         []TradeRecord                        `yaml:"trades" json:"trades"`
	Performance    optional.Option[PerformanceMetrics]  `yaml:"performance" json:"performance"`
}

// IsEmpty reports whether the run produced no usable result.
func (r BacktestResult) IsEmpty() bool {
	return r.TotalReturn.IsNone()
}

// backtestResultYAML mirrors BacktestResult with pointer fields so that
// absent values serialize as YAML null instead of the Option's internal
// representation.
type backtestResultYAML struct {
	ID             string              `yaml:"id"`
	Timestamp      time.Time           `yaml:"timestamp"`
	Strategy       string              `yaml:"strategy"`
	StartDate      time.Time           `yaml:"start_date"`
	EndDate        time.Time           `yaml:"end_date"`
	InitialCapital float64             `yaml:"initial_capital"`
	FinalValue     *float64            `yaml:"final_value"`
	TotalReturn    *float64            `yaml:"total_return"`
	Statistics     Statistics          `yaml:"statistics"`
	EquityCurve    []EquityPoint       `yaml:"equity_curve"`
	Trades         []TradeRecord       `yaml:"trades"`
	Performance    *PerformanceMetrics `yaml:"performance"`
}

// MarshalYAML implements yaml.Marshaler.
func (r BacktestResult) MarshalYAML() (interface{}, error) {
	out := backtestResultYAML{
		ID:             r.ID,
		Timestamp:      r.Timestamp,
		Strategy:       r.Strategy,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		InitialCapital: r.InitialCapital,
		FinalValue:     optionalFloatPtr(r.FinalValue),
		TotalReturn:    optionalFloatPtr(r.TotalReturn),
		Statistics:     r.Statistics,
		EquityCurve:    r.EquityCurve,
		Trades:         r.Trades,
		Performance:    nil,
	}

	if r.Performance.IsSome() {
		perf := r.Performance.Unwrap()
		out.Performance = &perf
	}

	return out, nil
}

func optionalFloatPtr(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}

// WriteResult writes a backtest result to a YAML file.
func WriteResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
