package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/evdnx/gosmc/types"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func closed(pl, fees float64) types.TradeOutcome {
	return types.TradeOutcome{Resolved: true, ProfitLoss: pl, Fees: fees}
}

func TestPaperLedger_BookAndSummary(t *testing.T) {
	l := NewPaperLedger(10_000)
	for _, o := range []types.TradeOutcome{closed(200, 2), closed(-100, 1), closed(-200, 1), closed(300, 3)} {
		if err := l.Book(o); err != nil {
			t.Fatalf("book failed: %v", err)
		}
	}
	if eq := l.Equity(); eq != 10_200 {
		t.Fatalf("expected equity 10200, got %v", eq)
	}
	s := l.Summary()
	if s.Trades != 4 || s.GrossProfit != 500 || s.GrossLoss != 300 || s.Fees != 7 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !near(s.ReturnPct, 2) || !near(s.ProfitFactor, 500.0/300.0) {
		t.Fatalf("return=%v pf=%v", s.ReturnPct, s.ProfitFactor)
	}
	// Peak 10200 after the first trade, trough 9900.
	if !near(s.MaxDrawdownPct, 300.0/10_200*100) {
		t.Fatalf("max drawdown %v", s.MaxDrawdownPct)
	}
}

func TestPaperLedger_ProfitFactorCap(t *testing.T) {
	l := NewPaperLedger(1000)
	if s := l.Summary(); s.ProfitFactor != 0 {
		t.Fatalf("empty ledger must report 0, got %v", s.ProfitFactor)
	}
	_ = l.Book(closed(50, 0))
	if s := l.Summary(); s.ProfitFactor != ProfitFactorCap {
		t.Fatalf("expected the %d sentinel, got %v", ProfitFactorCap, s.ProfitFactor)
	}
}

func TestPaperLedger_RejectsUnresolved(t *testing.T) {
	l := NewPaperLedger(1000)
	if err := l.Book(types.TradeOutcome{ProfitLoss: 10}); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if eq := l.Equity(); eq != 1000 {
		t.Fatalf("equity should stay unchanged, got %v", eq)
	}
}
