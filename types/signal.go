package types

import (
	"encoding/json"
	"math"
)

// Signal is an immutable trade proposal emitted by a strategy generator.
type Signal struct {
	// ID is derived from the strategy, direction and EventTime, so
	// re-running the pipeline on the same history yields the same value.
	ID         string
	StrategyID string
	Direction  Direction

	// Time and Index locate the bar the signal was generated on. Simulation
	// starts strictly after Index.
	Time  int64
	Index int

	// EventTime is the time of the structural event that triggered the signal.
	EventTime int64
	// EntryIndex is the bar whose price set Entry. It equals Index except
	// for liquidity sweeps, which enter at the sweep bar's close up to
	// MaxAgeBars before Index. The simulation still starts after Index,
	// since the signal does not exist before that bar.
	EntryIndex int

	Entry      float64
	StopLoss   float64
	TP         [3]float64
	TPKind     [3]ExitKind
	RiskReward [3]float64
	Quantity   float64
	SweptLevel float64
	Reason     string
}

// Risk is the entry-to-stop distance (one R).
func (s Signal) Risk() float64 { return math.Abs(s.Entry - s.StopLoss) }

// MarshalJSON writes event-driven targets (infinite sentinels) as null.
func (s Signal) MarshalJSON() ([]byte, error) {
	type plain Signal
	out := struct {
		plain
		TP [3]*float64
	}{plain: plain(s)}
	for i, tp := range s.TP {
		if !math.IsInf(tp, 0) && !math.IsNaN(tp) {
			v := tp
			out.TP[i] = &v
		}
	}
	return json.Marshal(out)
}

type Outcome string

const (
	OutcomeTP1           Outcome = "TP1"
	OutcomeTP2           Outcome = "TP2"
	OutcomeTP3           Outcome = "TP3"
	OutcomeStopLoss      Outcome = "STOP_LOSS"
	OutcomeBreakeven     Outcome = "BREAKEVEN"
	OutcomeIndicatorExit Outcome = "INDICATOR_EXIT"
	OutcomeUnresolved    Outcome = "UNRESOLVED"
)

// TPOutcome maps a zero-based TP level to its outcome.
func TPOutcome(level int) Outcome {
	switch level {
	case 0:
		return OutcomeTP1
	case 1:
		return OutcomeTP2
	}
	return OutcomeTP3
}

// PartialExit records one slice of the position being closed.
type PartialExit struct {
	Level   int // 0..2 for TP levels, -1 for the stop
	Time    int64
	Index   int
	Price   float64
	Percent float64
	RR      float64
	PL      float64
}

// TradeOutcome is the realized result of simulating a Signal.
type TradeOutcome struct {
	SignalID   string
	StrategyID string
	Direction  Direction
	EntryTime  int64
	ExitTime   int64
	EntryIndex int
	ExitIndex  int
	Entry      float64
	StopLoss   float64
	ExitPrice  float64
	Quantity   float64
	Outcome    Outcome
	Partials   []PartialExit
	RealizedRR float64
	ProfitLoss float64
	Fees       float64
	IsWinner   bool
	Resolved   bool
}
