// Package ledger books simulated trade results against an account in
// decimal arithmetic.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/evdnx/gosmc/types"
)

// ProfitFactorCap is reported when there is profit but no loss.
const ProfitFactorCap = 999

// ErrUnresolved is returned when booking a trade that never closed.
var ErrUnresolved = errors.New("ledger: trade is unresolved")

type Ledger interface {
	Book(o types.TradeOutcome) error
	// For reporting we expose the account state
	Equity() float64
	Summary() Summary
}

// Summary is a snapshot of the account.
type Summary struct {
	Start          float64
	Equity         float64
	Peak           float64
	NetPL          float64
	GrossProfit    float64
	GrossLoss      float64 // positive
	Fees           float64
	ReturnPct      float64
	MaxDrawdownPct float64
	ProfitFactor   float64
	Trades         int
}

// Paper ledger: booked P/L only, no margin or open positions
type PaperLedger struct {
	start       decimal.Decimal
	equity      decimal.Decimal
	peak        decimal.Decimal
	maxDD       decimal.Decimal // fraction of peak
	grossProfit decimal.Decimal
	grossLoss   decimal.Decimal
	fees        decimal.Decimal
	trades      int
}

func NewPaperLedger(startEquity float64) *PaperLedger {
	s := decimal.NewFromFloat(startEquity)
	return &PaperLedger{start: s, equity: s, peak: s}
}

// Book adds the trade's net P/L and updates the drawdown.
func (p *PaperLedger) Book(o types.TradeOutcome) error {
	if !o.Resolved {
		return ErrUnresolved
	}
	pl := decimal.NewFromFloat(o.ProfitLoss)
	p.equity = p.equity.Add(pl)
	p.fees = p.fees.Add(decimal.NewFromFloat(o.Fees))
	switch pl.Sign() {
	case 1:
		p.grossProfit = p.grossProfit.Add(pl)
	case -1:
		p.grossLoss = p.grossLoss.Sub(pl)
	}
	if p.equity.GreaterThan(p.peak) {
		p.peak = p.equity
	}
	if p.peak.IsPositive() {
		if dd := p.peak.Sub(p.equity).Div(p.peak); dd.GreaterThan(p.maxDD) {
			p.maxDD = dd
		}
	}
	p.trades++
	return nil
}

func (p *PaperLedger) Equity() float64 { return p.equity.InexactFloat64() }

func (p *PaperLedger) Summary() Summary {
	hundred := decimal.NewFromInt(100)
	net := p.equity.Sub(p.start)
	s := Summary{
		Start:          p.start.InexactFloat64(),
		Equity:         p.equity.InexactFloat64(),
		Peak:           p.peak.InexactFloat64(),
		NetPL:          net.InexactFloat64(),
		GrossProfit:    p.grossProfit.InexactFloat64(),
		GrossLoss:      p.grossLoss.InexactFloat64(),
		Fees:           p.fees.InexactFloat64(),
		MaxDrawdownPct: p.maxDD.Mul(hundred).InexactFloat64(),
		Trades:         p.trades,
	}
	if p.start.IsPositive() {
		s.ReturnPct = net.Div(p.start).Mul(hundred).InexactFloat64()
	}
	switch {
	case p.grossLoss.IsPositive():
		s.ProfitFactor = p.grossProfit.Div(p.grossLoss).InexactFloat64()
	case p.grossProfit.IsPositive():
		s.ProfitFactor = ProfitFactorCap
	}
	return s
}
