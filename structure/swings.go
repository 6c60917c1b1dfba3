// Package structure derives market structure from bars: swing pivots,
// breaks of structure, changes of character, liquidity sweeps, fair value
// gaps and trendlines. Everything is recomputed per call from the bars.
package structure

import "github.com/evdnx/gosmc/types"

// IsSwingHigh reports whether bar i's high is strictly greater than the
// highs of the `length` bars on each side.
func IsSwingHigh(bars []types.Bar, i, length int) bool {
	if length <= 0 || i-length < 0 || i+length >= len(bars) {
		return false
	}
	h := bars[i].High
	for j := i - length; j <= i+length; j++ {
		if j != i && bars[j].High >= h {
			return false
		}
	}
	return true
}

// IsSwingLow mirrors IsSwingHigh for lows.
func IsSwingLow(bars []types.Bar, i, length int) bool {
	if length <= 0 || i-length < 0 || i+length >= len(bars) {
		return false
	}
	l := bars[i].Low
	for j := i - length; j <= i+length; j++ {
		if j != i && bars[j].Low <= l {
			return false
		}
	}
	return true
}

// DetectSwings returns every confirmed pivot ordered by index. A bar that
// is both a High and a Low pivot yields the Low first.
func DetectSwings(bars []types.Bar, length int) []types.SwingPoint {
	var out []types.SwingPoint
	for i := length; i+length < len(bars); i++ {
		if IsSwingLow(bars, i, length) {
			out = append(out, types.SwingPoint{Time: bars[i].Time, Price: bars[i].Low, Kind: types.SwingLow, Index: i})
		}
		if IsSwingHigh(bars, i, length) {
			out = append(out, types.SwingPoint{Time: bars[i].Time, Price: bars[i].High, Kind: types.SwingHigh, Index: i})
		}
	}
	return out
}

// Filter keeps swings of one kind.
func Filter(swings []types.SwingPoint, kind types.SwingKind) []types.SwingPoint {
	var out []types.SwingPoint
	for _, s := range swings {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// LabelKind classifies a swing against the previous swing of its kind.
type LabelKind string

const (
	HigherHigh LabelKind = "HH"
	LowerHigh  LabelKind = "LH"
	HigherLow  LabelKind = "HL"
	LowerLow   LabelKind = "LL"
)

// Labeled is a swing with its HH/HL/LH/LL classification.
type Labeled struct {
	types.SwingPoint
	Label LabelKind
}

// Label classifies every swing except the first of each kind. An equal
// high counts as LH and an equal low as LL.
func Label(swings []types.SwingPoint) []Labeled {
	var out []Labeled
	var prevHigh, prevLow *types.SwingPoint
	for i := range swings {
		s := swings[i]
		switch s.Kind {
		case types.SwingHigh:
			if prevHigh != nil {
				l := LowerHigh
				if s.Price > prevHigh.Price {
					l = HigherHigh
				}
				out = append(out, Labeled{SwingPoint: s, Label: l})
			}
			prevHigh = &swings[i]
		case types.SwingLow:
			if prevLow != nil {
				l := LowerLow
				if s.Price > prevLow.Price {
					l = HigherLow
				}
				out = append(out, Labeled{SwingPoint: s, Label: l})
			}
			prevLow = &swings[i]
		}
	}
	return out
}
