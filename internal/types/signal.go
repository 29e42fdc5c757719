package types

type SignalType string

const (
	// SignalTypeBuy opens a long position in the ticker.
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell liquidates the open position in the ticker.
	SignalTypeSell SignalType = "SELL"
	// SignalTypeHold takes no action. Omitting the ticker entirely means
	// the same thing.
	SignalTypeHold SignalType = "HOLD"
)

// Signal is one trading instruction for one ticker on one day. Strategies
// return signals as an ordered slice; the engine executes them in exactly
// that order, which matters because position sizing draws on remaining
// cash order by order.
type Signal struct {
	Ticker string
	Type   SignalType
	// Reason is a short free-form explanation, used only for logging.
	Reason string
}
