package indicator

import (
	"fmt"
	"time"

	"github.com/evdnx/gosmc/types"
)

// Anchor selects where a VWAP accumulation restarts.
type Anchor string

const (
	AnchorSession Anchor = "session" // whole input, never resets
	AnchorDaily   Anchor = "daily"
	AnchorWeekly  Anchor = "weekly" // ISO week
	AnchorMonthly Anchor = "monthly"
	AnchorRolling Anchor = "rolling"
)

// Valid reports whether a is a known anchor.
func (a Anchor) Valid() bool {
	switch a {
	case AnchorSession, AnchorDaily, AnchorWeekly, AnchorMonthly, AnchorRolling:
		return true
	}
	return false
}

// VWAP computes a volume-weighted average price for the given anchor.
// Rolling uses the last `period` bars (a partial window for the first
// period-1 bars). Whenever the accumulated volume is zero the mean typical
// price of the same window is used instead. Every bar gets a value.
func VWAP(bars []types.Bar, anchor Anchor, period int) Series {
	if len(bars) == 0 {
		return Series{}
	}
	if anchor == AnchorRolling {
		return rollingVWAP(bars, period)
	}
	out := make([]float64, len(bars))
	var pv, vol, tpSum float64
	var n int
	var key string
	for i, b := range bars {
		if k := periodKey(b.Time, anchor); i == 0 || k != key {
			key = k
			pv, vol, tpSum, n = 0, 0, 0, 0
		}
		tp := b.TypicalPrice()
		pv += tp * b.Volume
		vol += b.Volume
		tpSum += tp
		n++
		if vol == 0 {
			out[i] = tpSum / float64(n)
		} else {
			out[i] = pv / vol
		}
	}
	return Series{Values: out}
}

func rollingVWAP(bars []types.Bar, period int) Series {
	if period <= 0 {
		return Series{}
	}
	out := make([]float64, len(bars))
	var pv, vol, tpSum float64
	for i, b := range bars {
		tp := b.TypicalPrice()
		pv += tp * b.Volume
		vol += b.Volume
		tpSum += tp
		if i >= period {
			old := bars[i-period]
			otp := old.TypicalPrice()
			pv -= otp * old.Volume
			vol -= old.Volume
			tpSum -= otp
		}
		n := period
		if i+1 < period {
			n = i + 1
		}
		if vol <= 0 {
			out[i] = tpSum / float64(n)
		} else {
			out[i] = pv / vol
		}
	}
	return Series{Values: out}
}

// AnchoredVWAP accumulates from bar `from` onward. The series starts at
// `from`.
func AnchoredVWAP(bars []types.Bar, from int) Series {
	if from < 0 || from >= len(bars) {
		return Series{}
	}
	out := VWAP(bars[from:], AnchorSession, 0)
	out.Offset = from
	return out
}

func periodKey(ts int64, anchor Anchor) string {
	t := time.Unix(ts, 0).UTC()
	switch anchor {
	case AnchorDaily:
		return t.Format("2006-01-02")
	case AnchorWeekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case AnchorMonthly:
		return t.Format("2006-01")
	}
	return ""
}
