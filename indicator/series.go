// Package indicator holds pure technical-analysis transforms over bar
// slices. Every function is deterministic and returns a Series aligned to
// its input: Values[k] belongs to input index Offset+k, so indicators that
// need a warm-up return fewer values instead of padding with NaN.
package indicator

// Series is an indicator output aligned to the bars it was computed from.
type Series struct {
	Offset int
	Values []float64
}

// Len is the number of defined values.
func (s Series) Len() int { return len(s.Values) }

// Empty reports whether the series has no defined values.
func (s Series) Empty() bool { return len(s.Values) == 0 }

// End is one past the last input index covered by the series.
func (s Series) End() int { return s.Offset + len(s.Values) }

// At returns the value belonging to input index i.
func (s Series) At(i int) (float64, bool) {
	k := i - s.Offset
	if k < 0 || k >= len(s.Values) {
		return 0, false
	}
	return s.Values[k], true
}

// Last returns the most recent value.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// smaOf is SMA over an already-aligned series.
func smaOf(s Series, period int) Series {
	inner := SMA(s.Values, period)
	if inner.Empty() {
		return Series{Offset: s.Offset}
	}
	return Series{Offset: s.Offset + inner.Offset, Values: inner.Values}
}

func windowMinMax(x []float64) (lo, hi float64) {
	lo, hi = x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
