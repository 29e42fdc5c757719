package portfolio

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/vnquant-lab/backtest/internal/commission_fee"
	"github.com/vnquant-lab/backtest/internal/logger"
	"github.com/vnquant-lab/backtest/internal/types"
	"go.uber.org/zap"
)

// View is the capability handed to strategies: holdings inspection only,
// no mutation. Strategies cannot reach buy/sell through it, so portfolio
// invariants hold regardless of what a strategy does.
type View interface {
	// Cash returns the current uninvested cash.
	Cash() decimal.Decimal
	// InitialCapital returns the capital the portfolio started with.
	InitialCapital() decimal.Decimal
	// HasOpenPosition reports whether the ticker has an open position.
	HasOpenPosition(ticker string) bool
	// OpenPositionCount returns the number of open positions.
	OpenPositionCount() int
	// OpenTickers returns the tickers with open positions, sorted.
	OpenTickers() []string
	// OpenPosition returns a snapshot of the open position for ticker.
	OpenPosition(ticker string) optional.Option[types.PositionSnapshot]
}

// Portfolio owns cash, the open positions, the closed-trade history and
// the equity curve of one backtest run. All funding and share-availability
// invariants are enforced here and nowhere else:
//
//  1. cash never goes negative
//  2. at most one open position per ticker
//  3. a buy that cannot be fully funded (cost + commission) is rejected
//  4. a sell without a matching open position, or for more shares than
//     held, is rejected
//
// Rejections are warnings, not errors: the caller gets None and the
// simulation continues.
type Portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	commission     commission_fee.CommissionFee
	open           map[string]*types.Position
	closed         []*types.Position
	equityCurve    []types.EquityPoint
	log            *logger.Logger
}

// New constructs a portfolio for a single run.
func New(initialCapital decimal.Decimal, commission commission_fee.CommissionFee, log *logger.Logger) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		commission:     commission,
		open:           make(map[string]*types.Position),
		closed:         nil,
		equityCurve:    nil,
		log:            log,
	}
}

// Cash implements View.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// InitialCapital implements View.
func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

// HasOpenPosition implements View.
func (p *Portfolio) HasOpenPosition(ticker string) bool {
	_, ok := p.open[ticker]

	return ok
}

// OpenPositionCount implements View.
func (p *Portfolio) OpenPositionCount() int {
	return len(p.open)
}

// OpenTickers implements View.
func (p *Portfolio) OpenTickers() []string {
	tickers := make([]string, 0, len(p.open))
	for ticker := range p.open {
		tickers = append(tickers, ticker)
	}

	slices.Sort(tickers)

	return tickers
}

// OpenPosition implements View.
func (p *Portfolio) OpenPosition(ticker string) optional.Option[types.PositionSnapshot] {
	position, ok := p.open[ticker]
	if !ok {
		return optional.None[types.PositionSnapshot]()
	}

	return optional.Some(position.Snapshot())
}

// Buy opens a long position. Returns None without any state change when
// the total cost including commission exceeds available cash, or when the
// ticker already has an open position.
func (p *Portfolio) Buy(ticker string, date time.Time, price decimal.Decimal, shares int64) optional.Option[*types.Position] {
	if shares < 1 {
		p.log.Warn("Rejected buy with non-positive share count",
			zap.String("ticker", ticker),
			zap.Int64("shares", shares),
		)

		return optional.None[*types.Position]()
	}

	if _, ok := p.open[ticker]; ok {
		p.log.Warn("Rejected buy for ticker with an open position",
			zap.String("ticker", ticker),
		)

		return optional.None[*types.Position]()
	}

	cost := price.Mul(decimal.NewFromInt(shares))
	commission := p.commission.Calculate(cost)
	totalCost := cost.Add(commission)

	if totalCost.GreaterThan(p.cash) {
		p.log.Warn("Insufficient funds to buy",
			zap.String("ticker", ticker),
			zap.Int64("shares", shares),
			zap.String("price", price.String()),
			zap.String("needed", totalCost.String()),
			zap.String("cash", p.cash.String()),
		)

		return optional.None[*types.Position]()
	}

	position := types.NewPosition(ticker, date, price, shares, types.PositionTypeLong)
	p.open[ticker] = position
	p.cash = p.cash.Sub(totalCost)

	p.log.Info("Bought",
		zap.String("ticker", ticker),
		zap.Int64("shares", shares),
		zap.String("price", price.String()),
		zap.Time("date", date),
		zap.String("commission", commission.String()),
		zap.String("cash", p.cash.String()),
	)

	return optional.Some(position)
}

// Sell closes the open position for ticker. With shares None the whole
// position is sold. Returns None without any state change when there is
// no open position or the requested share count exceeds the holding.
//
// The position always retires to the closed history, even when fewer
// shares than held are sold; only the sold quantity is credited.
func (p *Portfolio) Sell(ticker string, date time.Time, price decimal.Decimal, shares optional.Option[int64]) optional.Option[*types.Position] {
	position, ok := p.open[ticker]
	if !ok {
		p.log.Warn("No position found to sell",
			zap.String("ticker", ticker),
		)

		return optional.None[*types.Position]()
	}

	sharesToSell := position.Shares
	if shares.IsSome() {
		sharesToSell = shares.Unwrap()
	}

	if sharesToSell > position.Shares {
		p.log.Warn("Cannot sell more shares than held",
			zap.String("ticker", ticker),
			zap.Int64("requested", sharesToSell),
			zap.Int64("held", position.Shares),
		)

		return optional.None[*types.Position]()
	}

	proceeds := price.Mul(decimal.NewFromInt(sharesToSell))
	commission := p.commission.Calculate(proceeds)
	netProceeds := proceeds.Sub(commission)

	if err := position.Close(date, price); err != nil {
		p.log.Warn("Failed to close position",
			zap.String("ticker", ticker),
			zap.Error(err),
		)

		return optional.None[*types.Position]()
	}

	p.cash = p.cash.Add(netProceeds)

	delete(p.open, ticker)
	p.closed = append(p.closed, position)

	p.log.Info("Sold",
		zap.String("ticker", ticker),
		zap.Int64("shares", sharesToSell),
		zap.String("price", price.String()),
		zap.Time("date", date),
		zap.String("pnl", position.PnL.Unwrap().String()),
		zap.Float64("pnl_pct", position.PnLPct.Unwrap()),
		zap.String("commission", commission.String()),
		zap.String("cash", p.cash.String()),
	)

	return optional.Some(position)
}

// TotalValue returns cash plus the market value of every open position
// with a quote in currentPrices. Open positions in tickers absent from
// the map contribute nothing for this tick.
func (p *Portfolio) TotalValue(currentPrices map[string]decimal.Decimal) decimal.Decimal {
	total := p.cash

	for _, ticker := range p.OpenTickers() {
		if price, ok := currentPrices[ticker]; ok {
			total = total.Add(p.open[ticker].MarketValue(price))
		}
	}

	return total
}

// RecordEquity appends a daily equity sample.
func (p *Portfolio) RecordEquity(point types.EquityPoint) {
	p.equityCurve = append(p.equityCurve, point)
}

// EquityCurve returns the recorded equity samples in order.
func (p *Portfolio) EquityCurve() []types.EquityPoint {
	return p.equityCurve
}

// ClosedPositions returns closed positions in closing order.
func (p *Portfolio) ClosedPositions() []*types.Position {
	return p.closed
}

// Statistics computes trade statistics over the closed positions. All
// fields are zero when there are no closed trades.
func (p *Portfolio) Statistics() types.Statistics {
	if len(p.closed) == 0 {
		return types.Statistics{}
	}

	var winning, losing int

	totalPnL := decimal.Zero
	winPnL := decimal.Zero
	lossPnL := decimal.Zero

	for _, position := range p.closed {
		pnl := position.PnL.Unwrap()
		totalPnL = totalPnL.Add(pnl)

		if pnl.IsPositive() {
			winning++

			winPnL = winPnL.Add(pnl)
		} else {
			losing++

			lossPnL = lossPnL.Add(pnl)
		}
	}

	total := len(p.closed)
	avgPnL := totalPnL.Div(decimal.NewFromInt(int64(total)))

	avgWin := decimal.Zero
	if winning > 0 {
		avgWin = winPnL.Div(decimal.NewFromInt(int64(winning)))
	}

	avgLoss := decimal.Zero
	if losing > 0 {
		avgLoss = lossPnL.Div(decimal.NewFromInt(int64(losing)))
	}

	profitFactor := 0.0
	if !avgLoss.IsZero() {
		profitFactor = avgWin.Div(avgLoss).Abs().InexactFloat64()
	}

	return types.Statistics{
		TotalTrades:   total,
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / float64(total),
		TotalPnL:      totalPnL.InexactFloat64(),
		TotalPnLPct:   totalPnL.Div(p.initialCapital).InexactFloat64(),
		AvgPnL:        avgPnL.InexactFloat64(),
		AvgWin:        avgWin.InexactFloat64(),
		AvgLoss:       avgLoss.InexactFloat64(),
		ProfitFactor:  profitFactor,
	}
}
