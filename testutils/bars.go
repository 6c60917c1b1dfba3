package testutils

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// Step is the spacing between fixture bar timestamps (one minute).
const Step int64 = 60

// Start is the timestamp of the first fixture bar (2024-01-01T00:00:00Z).
const Start int64 = 1704067200

// OHLCV builds bars from [open, high, low, close, volume] rows with evenly
// spaced timestamps.
func OHLCV(rows ...[5]float64) []types.Bar {
	out := make([]types.Bar, len(rows))
	for i, r := range rows {
		out[i] = types.Bar{
			Time:   Start + int64(i)*Step,
			Open:   r[0],
			High:   r[1],
			Low:    r[2],
			Close:  r[3],
			Volume: r[4],
		}
	}
	return out
}

// FromCloses builds bars whose open is the previous close and whose
// high/low straddle the body by spread.
func FromCloses(spread, volume float64, closes ...float64) []types.Bar {
	out := make([]types.Bar, len(closes))
	prev := closes[0]
	for i, c := range closes {
		out[i] = types.Bar{
			Time:   Start + int64(i)*Step,
			Open:   prev,
			High:   math.Max(prev, c) + spread,
			Low:    math.Min(prev, c) - spread,
			Close:  c,
			Volume: volume,
		}
		prev = c
	}
	return out
}

// Ramp returns n closes starting at from and moving by step each bar.
func Ramp(from, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

// Zigzag returns closes oscillating between lo and hi with the given leg
// length, drifting by drift per completed cycle. It produces regular swing
// pivots for structure tests.
func Zigzag(lo, hi float64, leg, cycles int, drift float64) []float64 {
	var out []float64
	for c := 0; c < cycles; c++ {
		base := float64(c) * drift
		for i := 0; i < leg; i++ {
			out = append(out, base+lo+(hi-lo)*float64(i)/float64(leg))
		}
		for i := 0; i < leg; i++ {
			out = append(out, base+hi-(hi-lo)*float64(i)/float64(leg))
		}
	}
	return out
}

// Concat joins close series.
func Concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Shift returns a copy of bars with every timestamp moved by delta.
func Shift(bars []types.Bar, delta int64) []types.Bar {
	out := make([]types.Bar, len(bars))
	for i, b := range bars {
		b.Time += delta
		out[i] = b
	}
	return out
}
