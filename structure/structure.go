package structure

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// EventKind distinguishes continuation from reversal breaks.
type EventKind string

const (
	BOS   EventKind = "BOS"
	CHoCH EventKind = "CHoCH"
)

// Event is a break of a prior swing extreme.
type Event struct {
	Kind      EventKind
	Direction types.Trend

	// The prior swing whose extreme was taken out.
	SwingTime  int64
	SwingPrice float64
	SwingIndex int

	// The new swing that exceeded it.
	PivotPrice float64
	PivotIndex int

	BreakTime  int64
	BreakIndex int

	// ConfirmIndex is the first bar at which the event is knowable.
	ConfirmIndex int

	SweptLevel       types.SwingKind
	IsLiquiditySweep bool
}

// BreakPercent is how far the new swing went beyond the broken level, in
// percent of that level.
func (e Event) BreakPercent() float64 {
	if e.SwingPrice == 0 {
		return 0
	}
	return math.Abs(e.PivotPrice-e.SwingPrice) / e.SwingPrice * 100
}

// Structure is the result of Detect.
type Structure struct {
	Swings []types.SwingPoint
	BOS    []Event // includes liquidity sweeps
	CHoCH  []Event
	Trend  types.Trend
}

// Detect walks the swings in chronological order (Low before High on the
// same bar) with a single running trend. When a swing exceeds the previous
// swing of its kind, the first close beyond the old extreme between the old
// swing and the new swing's confirmation bar is the break: a CHoCH when it
// opposes the running trend, else a BOS, and the trend follows the break.
// Without such a close the move was a wick-only liquidity sweep, recorded
// in BOS with the reversal direction and leaving the trend untouched.
func Detect(bars []types.Bar, length int) Structure {
	st := Structure{Swings: DetectSwings(bars, length)}
	var lastHigh, lastLow *types.SwingPoint
	for i := range st.Swings {
		s := &st.Swings[i]
		var prev *types.SwingPoint
		if s.Kind == types.SwingHigh {
			prev, lastHigh = lastHigh, s
		} else {
			prev, lastLow = lastLow, s
		}
		if prev == nil {
			continue
		}
		up := s.Kind == types.SwingHigh
		if (up && s.Price <= prev.Price) || (!up && s.Price >= prev.Price) {
			continue
		}
		confirm := s.Index + length
		ev := Event{
			SwingTime:    prev.Time,
			SwingPrice:   prev.Price,
			SwingIndex:   prev.Index,
			PivotPrice:   s.Price,
			PivotIndex:   s.Index,
			ConfirmIndex: confirm,
			SweptLevel:   s.Kind,
			BreakIndex:   -1,
		}
		end := confirm
		if end >= len(bars) {
			end = len(bars) - 1
		}
		for j := prev.Index + 1; j <= end; j++ {
			c := bars[j].Close
			if (up && c > prev.Price) || (!up && c < prev.Price) {
				ev.BreakIndex = j
				break
			}
		}
		dir := types.Bearish
		if up {
			dir = types.Bullish
		}
		if ev.BreakIndex < 0 {
			ev.Kind = BOS
			ev.IsLiquiditySweep = true
			ev.BreakIndex = s.Index
			ev.BreakTime = s.Time
			ev.Direction = types.Bullish
			if up {
				ev.Direction = types.Bearish
			}
			st.BOS = append(st.BOS, ev)
			continue
		}
		ev.BreakTime = bars[ev.BreakIndex].Time
		ev.Direction = dir
		if st.Trend != types.TrendNone && st.Trend != dir {
			ev.Kind = CHoCH
			st.CHoCH = append(st.CHoCH, ev)
		} else {
			ev.Kind = BOS
			st.BOS = append(st.BOS, ev)
		}
		st.Trend = dir
	}
	return st
}

// Events merges BOS and CHoCH in detection order.
func (st Structure) Events() []Event {
	out := make([]Event, 0, len(st.BOS)+len(st.CHoCH))
	i, j := 0, 0
	for i < len(st.BOS) || j < len(st.CHoCH) {
		if j >= len(st.CHoCH) || (i < len(st.BOS) && eventBefore(st.BOS[i], st.CHoCH[j])) {
			out = append(out, st.BOS[i])
			i++
			continue
		}
		out = append(out, st.CHoCH[j])
		j++
	}
	return out
}

func eventBefore(a, b Event) bool {
	if a.PivotIndex != b.PivotIndex {
		return a.PivotIndex < b.PivotIndex
	}
	// same bar: lows are processed first
	return a.SweptLevel == types.SwingLow && b.SweptLevel == types.SwingHigh
}

// LastBOS returns the most recent BOS matching sweep.
func (st Structure) LastBOS(sweep bool) (Event, bool) {
	for i := len(st.BOS) - 1; i >= 0; i-- {
		if st.BOS[i].IsLiquiditySweep == sweep {
			return st.BOS[i], true
		}
	}
	return Event{}, false
}

// LastCHoCH returns the most recent CHoCH.
func (st Structure) LastCHoCH() (Event, bool) {
	if len(st.CHoCH) == 0 {
		return Event{}, false
	}
	return st.CHoCH[len(st.CHoCH)-1], true
}

// FilterMinBreak drops events whose BreakPercent is below pct.
func FilterMinBreak(events []Event, pct float64) []Event {
	if pct <= 0 {
		return events
	}
	var out []Event
	for _, e := range events {
		if e.BreakPercent() >= pct {
			out = append(out, e)
		}
	}
	return out
}

// Recent is the present-mode view: the last maxSwings swings and the last
// maxEvents events overall. Non-positive limits keep everything.
func Recent(st Structure, maxSwings, maxEvents int) Structure {
	out := Structure{Trend: st.Trend, Swings: st.Swings}
	if maxSwings > 0 && len(out.Swings) > maxSwings {
		out.Swings = out.Swings[len(out.Swings)-maxSwings:]
	}
	events := st.Events()
	if maxEvents > 0 && len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	for _, e := range events {
		if e.Kind == CHoCH {
			out.CHoCH = append(out.CHoCH, e)
		} else {
			out.BOS = append(out.BOS, e)
		}
	}
	return out
}
