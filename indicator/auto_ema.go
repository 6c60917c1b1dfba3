package indicator

import "github.com/evdnx/gosmc/types"

// EMAFit is the reactivity score of one EMA length.
type EMAFit struct {
	Length      int
	Score       float64 // percent of touches that reacted, -1 when unscored
	BullTouches int
	BearTouches int
}

// BestEMALength scans EMA lengths in [min, max] and returns the one price
// respected most often. A bullish touch is a bar whose low reaches the EMA
// while it closes above it and the next bar also closes above; it counts as
// a reaction when the bar before was above the EMA too. Bearish touches are
// mirrored. Lengths with fewer than minTouches bullish (then bearish)
// touches are unscored. Ties keep the shorter length.
func BestEMALength(bars []types.Bar, min, max, minTouches int) (EMAFit, bool) {
	if min <= 0 || max < min || len(bars) < 3 {
		return EMAFit{}, false
	}
	closes := types.Closes(bars)
	best := EMAFit{Score: -1}
	found := false
	for length := min; length <= max; length++ {
		fit := scoreEMA(bars, EMA(closes, length).Values)
		fit.Length = length
		bull, bear := fit.bullPct(minTouches), fit.bearPct(minTouches)
		switch {
		case bull > -1:
			fit.Score = bull
		case bear > -1:
			fit.Score = bear
		default:
			fit.Score = -1
		}
		if !found || fit.Score > best.Score {
			best, found = fit.EMAFit, true
		}
	}
	return best, found
}

type emaTouches struct {
	EMAFit
	bullReacted int
	bearReacted int
}

func (f emaTouches) bullPct(min int) float64 {
	if f.BullTouches == 0 || f.BullTouches < min {
		return -1
	}
	return float64(f.bullReacted) / float64(f.BullTouches) * 100
}

func (f emaTouches) bearPct(min int) float64 {
	if f.BearTouches == 0 || f.BearTouches < min {
		return -1
	}
	return float64(f.bearReacted) / float64(f.BearTouches) * 100
}

func scoreEMA(bars []types.Bar, ema []float64) emaTouches {
	var f emaTouches
	for i := 1; i < len(bars)-1; i++ {
		b := bars[i]
		if bars[i+1].Close > ema[i+1] && b.Low <= ema[i] && b.Close > ema[i] {
			f.BullTouches++
			if bars[i-1].Close > ema[i-1] {
				f.bullReacted++
			}
		}
		if bars[i+1].Close < ema[i+1] && b.High >= ema[i] && b.Close < ema[i] {
			f.BearTouches++
			if bars[i-1].Close < ema[i-1] {
				f.bearReacted++
			}
		}
	}
	return f
}
