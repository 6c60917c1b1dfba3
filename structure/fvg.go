package structure

import (
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/types"
)

// FVGConfig tunes fair value gap detection.
type FVGConfig struct {
	// MinSizeATR is the minimum gap size as a multiple of ATR at the
	// completing bar. Zero disables the filter.
	MinSizeATR float64 `json:"minSizeAtr"`
	ATRPeriod  int     `json:"atrPeriod"`
	// VolumePeriod is the SMA length the middle bar's volume is scored against.
	VolumePeriod int `json:"volumePeriod"`
	// HighValueScore marks gaps whose volume score reaches it.
	HighValueScore float64 `json:"highValueScore"`
}

// DefaultFVGConfig mirrors the usual 0.5 ATR / 1.5x volume settings.
func DefaultFVGConfig() FVGConfig {
	return FVGConfig{MinSizeATR: 0.5, ATRPeriod: 14, VolumePeriod: 20, HighValueScore: 1.5}
}

// FVG is a three-bar imbalance. Index is the bar completing the gap.
type FVG struct {
	Direction   types.Trend
	Top         float64
	Bottom      float64
	StartIndex  int
	Index       int
	StartTime   int64
	Time        int64
	Size        float64
	VolumeScore float64
	HighValue   bool

	// MitigatedIndex is the first later bar whose range overlaps the gap,
	// -1 while the gap is open.
	MitigatedIndex int
}

// Mitigated reports whether price has traded back into the gap.
func (g FVG) Mitigated() bool { return g.MitigatedIndex >= 0 }

// Contains reports whether price lies inside the gap.
func (g FVG) Contains(p float64) bool { return p >= g.Bottom && p <= g.Top }

// DetectFVGs finds bullish gaps (high[i-2] < low[i]) and bearish gaps
// (low[i-2] > high[i]) in chronological order.
func DetectFVGs(bars []types.Bar, cfg FVGConfig) []FVG {
	if len(bars) < 3 {
		return nil
	}
	atr := indicator.ATR(bars, cfg.ATRPeriod)
	var out []FVG
	for i := 2; i < len(bars); i++ {
		var g FVG
		switch {
		case bars[i-2].High < bars[i].Low:
			g = FVG{Direction: types.Bullish, Top: bars[i].Low, Bottom: bars[i-2].High}
		case bars[i-2].Low > bars[i].High:
			g = FVG{Direction: types.Bearish, Top: bars[i-2].Low, Bottom: bars[i].High}
		default:
			continue
		}
		g.Size = g.Top - g.Bottom
		if a, ok := atr.At(i); ok && cfg.MinSizeATR > 0 && g.Size < a*cfg.MinSizeATR {
			continue
		}
		g.StartIndex, g.Index = i-2, i
		g.StartTime, g.Time = bars[i-2].Time, bars[i].Time
		g.VolumeScore = volumeScore(bars, i-1, cfg.VolumePeriod)
		g.HighValue = cfg.HighValueScore > 0 && g.VolumeScore >= cfg.HighValueScore
		g.MitigatedIndex = -1
		for j := i + 1; j < len(bars); j++ {
			if bars[j].Low <= g.Top && bars[j].High >= g.Bottom {
				g.MitigatedIndex = j
				break
			}
		}
		out = append(out, g)
	}
	return out
}

// Unmitigated keeps the gaps price has not returned to.
func Unmitigated(gaps []FVG) []FVG {
	var out []FVG
	for _, g := range gaps {
		if !g.Mitigated() {
			out = append(out, g)
		}
	}
	return out
}

// volumeScore is bar i's volume over the mean volume of the `period` bars
// ending at i (fewer near the start).
func volumeScore(bars []types.Bar, i, period int) float64 {
	if period <= 0 {
		return 0
	}
	from := i - period + 1
	if from < 0 {
		from = 0
	}
	var sum float64
	for j := from; j <= i; j++ {
		sum += bars[j].Volume
	}
	mean := sum / float64(i-from+1)
	if mean == 0 {
		return 0
	}
	return bars[i].Volume / mean
}
