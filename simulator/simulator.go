// Package simulator replays a signal bar by bar until its position is
// fully closed.
package simulator

import (
	"math"

	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// Options are the trading costs, in percent per side.
type Options struct {
	CommissionPercent float64
	SlippagePercent   float64
}

// OptionsFrom maps the configured costs.
func OptionsFrom(c config.Costs) Options {
	return Options{CommissionPercent: c.CommissionPercent, SlippagePercent: c.SlippagePercent}
}

// ExitState is the mutable state of one simulated position. It lives for
// a single Simulate call.
type ExitState struct {
	TrailingActive bool
	TrailingLevel  float64
	// EntryAbove records, for EMA and VWAP levels, whether the entry was
	// above the indicator; touches are looked for from that side.
	EntryAbove [3]bool
	// Armed marks cross levels whose price has closed on the trade's side
	// of the indicator. Only an armed level can exit, on a close back
	// through it: bearish for a long, bullish for a short.
	Armed [3]bool
	TPHit [3]bool
	Stop       float64
	// Remaining is the open share of the position, in percent.
	Remaining float64
}

type levelKind int

const (
	levelFixed levelKind = iota
	levelIndicator
	levelTrailing
)

type level struct {
	kind    levelKind
	price   float64
	percent float64
	mode    types.ExitMode
	series  []float64 // indicator value per bar, NaN where undefined
	swing   int
}

// Simulate walks bars strictly after sig.Index. Within a bar the stop is
// checked first, then the next take-profit level: an indicator exit, the
// trailing level or a fixed price. Fixed levels may chain within one bar.
// A hit that is not the last level moves the stop to entry.
func Simulate(bars []types.Bar, sig types.Signal, bot exit.BotConfig, opts Options) types.TradeOutcome {
	out := types.TradeOutcome{
		SignalID:   sig.ID,
		StrategyID: sig.StrategyID,
		Direction:  sig.Direction,
		EntryTime:  sig.Time,
		EntryIndex: sig.Index,
		Entry:      sig.Entry,
		StopLoss:   sig.StopLoss,
		Quantity:   sig.Quantity,
		Outcome:    types.OutcomeUnresolved,
	}
	risk := sig.Risk()
	levels := buildLevels(bars, sig, bot)
	if risk <= 0 || len(levels) == 0 || sig.Index < 0 || sig.Index >= len(bars) {
		return out
	}
	st := ExitState{Stop: sig.StopLoss, Remaining: 100}
	sign := sig.Direction.Sign()
	for k, l := range levels {
		if l.kind == levelIndicator {
			if v := l.series[sig.Index]; !math.IsNaN(v) {
				st.EntryAbove[k] = sig.Entry > v
				st.Armed[k] = (sig.Entry-v)*sign > 0
			}
		}
	}

	book := func(i, lvl int, price, pct float64) {
		r := (price - sig.Entry) * sign / risk
		pl, fees := profit(sig, price, pct, opts)
		out.Partials = append(out.Partials, types.PartialExit{
			Level: lvl, Time: bars[i].Time, Index: i, Price: price, Percent: pct, RR: r, PL: pl,
		})
		out.RealizedRR += pct / 100 * r
		out.ProfitLoss += pl
		out.Fees += fees
		st.Remaining -= pct
	}
	closeAt := func(i int, price float64, o types.Outcome) types.TradeOutcome {
		out.ExitTime, out.ExitIndex, out.ExitPrice = bars[i].Time, i, price
		out.Outcome, out.Resolved = o, true
		out.IsWinner = out.RealizedRR > 0
		return out
	}

	next := 0
	for i := sig.Index + 1; i < len(bars); i++ {
		b := bars[i]
		if (sign > 0 && b.Low <= st.Stop) || (sign < 0 && b.High >= st.Stop) {
			book(i, -1, st.Stop, st.Remaining)
			o := types.OutcomeStopLoss
			if next > 0 {
				o = types.OutcomeBreakeven
			}
			return closeAt(i, st.Stop, o)
		}
		st.updateTrailing(bars, i, sig, levels)
		st.armCrosses(b, i, sign, levels)
		for next < len(levels) {
			l := levels[next]
			price, ok := l.hit(b, i, next, sign, &st)
			if !ok {
				break
			}
			final := next == len(levels)-1
			pct := l.percent
			if final {
				pct = st.Remaining
			}
			book(i, next, price, pct)
			st.TPHit[next] = true
			if final {
				o := types.TPOutcome(next)
				if l.kind == levelIndicator {
					o = types.OutcomeIndicatorExit
				}
				return closeAt(i, price, o)
			}
			st.Stop = sig.Entry
			next++
			if l.kind != levelFixed {
				break
			}
		}
	}
	out.ExitIndex = len(bars) - 1
	out.ExitTime = bars[len(bars)-1].Time
	return out
}

// buildLevels normalizes the position split: all-zero percents split
// equally, and the last level always closes what is left.
func buildLevels(bars []types.Bar, sig types.Signal, bot exit.BotConfig) []level {
	targets := bot.Targets()
	var sum float64
	for _, t := range targets {
		sum += t.PositionPercent
	}
	var closes []float64
	out := make([]level, len(targets))
	for k, t := range targets {
		l := level{kind: levelFixed, price: sig.TP[k], percent: t.PositionPercent}
		if sum == 0 {
			l.percent = 100 / float64(len(targets))
		}
		switch c := t.Config.(type) {
		case exit.EMA:
			if closes == nil {
				closes = types.Closes(bars)
			}
			l.kind, l.mode = levelIndicator, c.Mode
			l.series = dense(indicator.EMA(closes, c.Period), len(bars))
		case exit.VWAP:
			if c.Mode == types.ModeCross {
				l.kind, l.mode = levelIndicator, c.Mode
				l.series = dense(indicator.VWAP(bars, c.Anchor, c.RollingPeriod), len(bars))
			}
		case exit.Trailing:
			l.kind = levelTrailing
			l.swing = c.SwingLength
			if l.swing <= 0 {
				l.swing = exit.DefaultSwingLength
			}
		}
		out[k] = l
	}
	return out
}

// dense spreads s over n bars with NaN during warmup.
func dense(s indicator.Series, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		v, ok := s.At(i)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// hit reports whether level l fills on bar b and at what price.
func (l level) hit(b types.Bar, i, k int, sign float64, st *ExitState) (float64, bool) {
	switch l.kind {
	case levelIndicator:
		v := l.series[i]
		if math.IsNaN(v) {
			return 0, false
		}
		if l.mode == types.ModeCross {
			if st.Armed[k] && (b.Close-v)*sign < 0 {
				return b.Close, true
			}
			return 0, false
		}
		above := st.EntryAbove[k]
		if (above && b.Low <= v) || (!above && b.High >= v) {
			return v, true
		}
	case levelTrailing:
		if !st.TrailingActive {
			return 0, false
		}
		if (sign > 0 && b.Low <= st.TrailingLevel) || (sign < 0 && b.High >= st.TrailingLevel) {
			return st.TrailingLevel, true
		}
	default:
		if math.IsInf(l.price, 0) {
			return 0, false
		}
		if (sign > 0 && b.High >= l.price) || (sign < 0 && b.Low <= l.price) {
			return l.price, true
		}
	}
	return 0, false
}

// armCrosses arms every pending cross level once bar b closes beyond its
// indicator in the trade direction.
func (st *ExitState) armCrosses(b types.Bar, i int, sign float64, levels []level) {
	for k, l := range levels {
		if l.kind != levelIndicator || l.mode != types.ModeCross || st.TPHit[k] {
			continue
		}
		if v := l.series[i]; !math.IsNaN(v) && (b.Close-v)*sign > 0 {
			st.Armed[k] = true
		}
	}
}

// updateTrailing activates and ratchets the trailing level. A swing is
// usable once confirmed, after entry, beyond entry in the trade direction,
// and while price is in profit.
func (st *ExitState) updateTrailing(bars []types.Bar, i int, sig types.Signal, levels []level) {
	for k, l := range levels {
		if l.kind != levelTrailing || st.TPHit[k] {
			continue
		}
		j := i - l.swing
		if j <= sig.Index {
			return
		}
		sign := sig.Direction.Sign()
		if (bars[i].Close-sig.Entry)*sign <= 0 {
			return
		}
		var pivot float64
		if sign > 0 && structure.IsSwingLow(bars[:i+1], j, l.swing) {
			pivot = bars[j].Low
		} else if sign < 0 && structure.IsSwingHigh(bars[:i+1], j, l.swing) {
			pivot = bars[j].High
		} else {
			return
		}
		if (pivot-sig.Entry)*sign <= 0 {
			return
		}
		if !st.TrailingActive || (pivot-st.TrailingLevel)*sign > 0 {
			st.TrailingActive, st.TrailingLevel = true, pivot
		}
		return
	}
}

// profit returns the net P/L and fees of closing pct% of the position at
// price. Slippage worsens both fills; commission is charged on both sides.
func profit(sig types.Signal, price, pct float64, opts Options) (pl, fees float64) {
	qty := sig.Quantity * pct / 100
	sign := sig.Direction.Sign()
	slip := opts.SlippagePercent / 100
	entry := sig.Entry * (1 + sign*slip)
	exitPx := price * (1 - sign*slip)
	fees = (entry + exitPx) * qty * opts.CommissionPercent / 100
	return (exitPx-entry)*sign*qty - fees, fees
}
