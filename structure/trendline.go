package structure

import (
	"math"
	"sort"

	"github.com/evdnx/gosmc/types"
)

// TrendlineConfig tunes automatic trendline fitting.
type TrendlineConfig struct {
	SwingLength int `json:"swingLength"`
	// MinTouches is the minimum number of same-kind swings inside the band,
	// anchors included.
	MinTouches int `json:"minTouches"`
	// TolerancePercent is the half-width of the touch band around the line.
	TolerancePercent float64 `json:"tolerancePercent"`
	// Lookback limits the anchors to the most recent swings of each kind.
	Lookback int `json:"lookback"`
	// MaxLines per kind.
	MaxLines int `json:"maxLines"`
}

// DefaultTrendlineConfig returns sensible trendline settings.
func DefaultTrendlineConfig() TrendlineConfig {
	return TrendlineConfig{SwingLength: 5, MinTouches: 2, TolerancePercent: 0.2, Lookback: 8, MaxLines: 3}
}

// Trendline is a line through two swing extremities. Kind SwingHigh is a
// resistance line, SwingLow a support line.
type Trendline struct {
	Kind       types.SwingKind
	StartIndex int
	EndIndex   int
	StartPrice float64
	Slope      float64 // price per bar
	Touches    int
	Violations int
}

// PriceAt projects the line to bar i.
func (l Trendline) PriceAt(i int) float64 {
	return l.StartPrice + l.Slope*float64(i-l.StartIndex)
}

// DetectTrendlines fits resistance lines through swing highs and support
// lines through swing lows. Every pair of recent anchors is a candidate;
// violations are bars between the anchors that pierce the band, touches
// are same-kind swings from the first anchor on that sit inside it.
// Candidates are ranked by fewest violations, then most touches, then
// most recent anchors. Resistance lines come first in the result.
func DetectTrendlines(bars []types.Bar, cfg TrendlineConfig) []Trendline {
	swings := DetectSwings(bars, cfg.SwingLength)
	var out []Trendline
	for _, kind := range []types.SwingKind{types.SwingHigh, types.SwingLow} {
		out = append(out, fitLines(bars, Filter(swings, kind), kind, cfg)...)
	}
	return out
}

func fitLines(bars []types.Bar, pts []types.SwingPoint, kind types.SwingKind, cfg TrendlineConfig) []Trendline {
	if cfg.Lookback > 0 && len(pts) > cfg.Lookback {
		pts = pts[len(pts)-cfg.Lookback:]
	}
	tol := cfg.TolerancePercent / 100
	var cands []Trendline
	for a := 0; a < len(pts); a++ {
		for b := a + 1; b < len(pts); b++ {
			l := Trendline{
				Kind:       kind,
				StartIndex: pts[a].Index,
				EndIndex:   pts[b].Index,
				StartPrice: pts[a].Price,
				Slope:      (pts[b].Price - pts[a].Price) / float64(pts[b].Index-pts[a].Index),
			}
			for j := l.StartIndex; j <= l.EndIndex; j++ {
				p := l.PriceAt(j)
				if kind == types.SwingHigh && bars[j].High > p*(1+tol) {
					l.Violations++
				}
				if kind == types.SwingLow && bars[j].Low < p*(1-tol) {
					l.Violations++
				}
			}
			for _, s := range pts[a:] {
				p := l.PriceAt(s.Index)
				if p != 0 && math.Abs(s.Price-p)/math.Abs(p) <= tol {
					l.Touches++
				}
			}
			if l.Touches >= cfg.MinTouches {
				cands = append(cands, l)
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		x, y := cands[i], cands[j]
		if x.Violations != y.Violations {
			return x.Violations < y.Violations
		}
		if x.Touches != y.Touches {
			return x.Touches > y.Touches
		}
		if x.EndIndex != y.EndIndex {
			return x.EndIndex > y.EndIndex
		}
		return x.StartIndex > y.StartIndex
	})
	if cfg.MaxLines > 0 && len(cands) > cfg.MaxLines {
		cands = cands[:cfg.MaxLines]
	}
	return cands
}
