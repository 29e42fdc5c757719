package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/pkg/errors"
)

type PositionType string

const (
	PositionTypeLong  PositionType = "LONG"
	PositionTypeShort PositionType = "SHORT"
)

// Position is a single holding. It is created open, closed at most once,
// and never mutated after closing.
type Position struct {
	Ticker     string
	EntryDate  time.Time
	EntryPrice decimal.Decimal
	Shares     int64
	Type       PositionType

	ExitDate  optional.Option[time.Time]
	ExitPrice optional.Option[decimal.Decimal]
	PnL       optional.Option[decimal.Decimal]
	PnLPct    optional.Option[float64]
}

// NewPosition opens a position.
func NewPosition(ticker string, entryDate time.Time, entryPrice decimal.Decimal, shares int64, positionType PositionType) *Position {
	return &Position{
		Ticker:     ticker,
		EntryDate:  entryDate,
		EntryPrice: entryPrice,
		Shares:     shares,
		Type:       positionType,
		ExitDate:   optional.None[time.Time](),
		ExitPrice:  optional.None[decimal.Decimal](),
		PnL:        optional.None[decimal.Decimal](),
		PnLPct:     optional.None[float64](),
	}
}

// IsClosed reports whether Close has already been called.
func (p *Position) IsClosed() bool {
	return p.ExitDate.IsSome()
}

// Close records the exit and computes realized P&L. The first close is
// final: a second call returns an error and changes nothing.
func (p *Position) Close(exitDate time.Time, exitPrice decimal.Decimal) error {
	if p.IsClosed() {
		return errors.Newf(errors.ErrCodePositionClosed, "position %s already closed", p.Ticker)
	}

	shares := decimal.NewFromInt(p.Shares)

	var pnl decimal.Decimal

	var pnlPct float64

	if p.Type == PositionTypeLong {
		pnl = exitPrice.Sub(p.EntryPrice).Mul(shares)
		pnlPct = exitPrice.Sub(p.EntryPrice).Div(p.EntryPrice).InexactFloat64()
	} else {
		pnl = p.EntryPrice.Sub(exitPrice).Mul(shares)
		pnlPct = p.EntryPrice.Sub(exitPrice).Div(p.EntryPrice).InexactFloat64()
	}

	p.ExitDate = optional.Some(exitDate)
	p.ExitPrice = optional.Some(exitPrice)
	p.PnL = optional.Some(pnl)
	p.PnLPct = optional.Some(pnlPct)

	return nil
}

// MarketValue marks the position to market. Short positions use the
// standard decomposition: entry value plus the unrealized short P&L,
// (2*entry - current) * shares.
func (p *Position) MarketValue(currentPrice decimal.Decimal) decimal.Decimal {
	shares := decimal.NewFromInt(p.Shares)

	if p.Type == PositionTypeLong {
		return currentPrice.Mul(shares)
	}

	two := decimal.NewFromInt(2)

	return p.EntryPrice.Mul(two).Sub(currentPrice).Mul(shares)
}

// PositionSnapshot is the read-only form of an open position handed to
// strategies.
type PositionSnapshot struct {
	Ticker     string
	EntryDate  time.Time
	EntryPrice decimal.Decimal
	Shares     int64
	Type       PositionType
}

// Snapshot returns a copy safe to hand outside the portfolio.
func (p *Position) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		Ticker:     p.Ticker,
		EntryDate:  p.EntryDate,
		EntryPrice: p.EntryPrice,
		Shares:     p.Shares,
		Type:       p.Type,
	}
}

// ToTrade converts a closed position to its report form with native
// numeric types. Calling it on an open position returns the zero record.
func (p *Position) ToTrade() TradeRecord {
	if !p.IsClosed() {
		return TradeRecord{}
	}

	return TradeRecord{
		Ticker:       p.Ticker,
		EntryDate:    p.EntryDate,
		EntryPrice:   p.EntryPrice.InexactFloat64(),
		ExitDate:     p.ExitDate.Unwrap(),
		ExitPrice:    p.ExitPrice.Unwrap().InexactFloat64(),
		Shares:       p.Shares,
		PositionType: p.Type,
		PnL:          p.PnL.Unwrap().InexactFloat64(),
		PnLPct:       p.PnLPct.Unwrap(),
	}
}
