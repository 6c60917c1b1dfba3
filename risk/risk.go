package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/evdnx/gosmc/config"
)

// Sizer turns a stop distance into an order quantity that risks a fixed
// share of the account.
type Sizer struct {
	Account config.Account
	Sizing  config.Sizing
}

// NewSizer bundles the account and broker constraints.
func NewSizer(acct config.Account, s config.Sizing) Sizer {
	return Sizer{Account: acct, Sizing: s}
}

// RiskAmount is the money put at risk per trade.
func (s Sizer) RiskAmount() decimal.Decimal {
	return decimal.NewFromFloat(s.Account.Size).
		Mul(decimal.NewFromFloat(s.Account.RiskPercent)).
		Div(decimal.NewFromInt(100))
}

// Qty returns the quantity for a trade entered at entry with its stop at
// stop. It is floored to StepSize, then to QuantityPrecision decimals, and
// is zero when it ends up below MinQty.
func (s Sizer) Qty(entry, stop float64) float64 {
	return CalcQty(s.RiskAmount(), entry, stop, s.Sizing)
}

// CalcQty sizes a position so that hitting the stop loses riskAmt.
func CalcQty(riskAmt decimal.Decimal, entry, stop float64, sz config.Sizing) float64 {
	dist := math.Abs(entry - stop)
	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) || !riskAmt.IsPositive() {
		return 0
	}
	qty := riskAmt.Div(decimal.NewFromFloat(dist))
	if sz.StepSize > 0 {
		step := decimal.NewFromFloat(sz.StepSize)
		qty = qty.Div(step).Floor().Mul(step)
	}
	qty = qty.RoundFloor(int32(sz.QuantityPrecision))
	if qty.LessThan(decimal.NewFromFloat(sz.MinQty)) {
		return 0
	}
	return qty.InexactFloat64()
}
