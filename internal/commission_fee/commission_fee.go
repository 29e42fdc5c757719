package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate the commission fee for a given order notional (price * shares)
	Calculate(notional decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerFlatRate Broker = "flat_rate"
	BrokerZero     Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerFlatRate,
	BrokerZero,
}

// GetCommissionFeeHandler returns the commission handler for a broker.
// The rate parameter only applies to rate-based brokers.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerFlatRate:
		return NewFlatRateCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
