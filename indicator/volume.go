package indicator

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// OBV is on-balance volume starting from zero at the first bar.
func OBV(bars []types.Bar) Series {
	if len(bars) == 0 {
		return Series{}
	}
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		out[i] = out[i-1]
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] += bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] -= bars[i].Volume
		}
	}
	return Series{Values: out}
}

// MFI is the money flow index. The first value sits at index `period`; a
// window with no negative flow yields 100.
func MFI(bars []types.Bar, period int) Series {
	if period <= 0 || len(bars) <= period {
		return Series{}
	}
	tp := make([]float64, len(bars))
	for i, b := range bars {
		tp[i] = b.TypicalPrice()
	}
	out := make([]float64, 0, len(bars)-period)
	for i := period; i < len(bars); i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * bars[j].Volume
			switch {
			case tp[j] > tp[j-1]:
				pos += flow
			case tp[j] < tp[j-1]:
				neg += flow
			}
		}
		if neg == 0 {
			out = append(out, 100)
			continue
		}
		out = append(out, 100-100/(1+pos/neg))
	}
	return Series{Offset: period, Values: out}
}

// ProfileLevel is one price bucket of a volume profile.
type ProfileLevel struct {
	Price  float64
	Volume float64
}

// Profile is a fixed-range volume profile.
type Profile struct {
	POC    float64
	VAH    float64
	VAL    float64
	Levels []ProfileLevel
}

// ValueAreaShare is the fraction of total volume the value area covers.
const ValueAreaShare = 0.70

// VolumeProfile distributes each bar's volume evenly across the buckets its
// high-low range covers, then grows the value area outward from the point
// of control, taking the heavier neighbour first, until ValueAreaShare of
// the volume is enclosed.
func VolumeProfile(bars []types.Bar, bins int) Profile {
	if bins < 2 || len(bars) == 0 {
		return Profile{}
	}
	lo, hi := bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}
	if hi == lo {
		var v float64
		for _, b := range bars {
			v += b.Volume
		}
		return Profile{POC: lo, VAH: hi, VAL: lo, Levels: []ProfileLevel{{Price: lo, Volume: v}}}
	}
	n := bins - 1
	width := (hi - lo) / float64(n)
	bucket := func(p float64) int {
		k := int((p - lo) / width)
		if k < 0 {
			return 0
		}
		if k >= n {
			return n - 1
		}
		return k
	}
	levels := make([]ProfileLevel, n)
	for k := range levels {
		levels[k].Price = lo + width*float64(k)
	}
	var total float64
	for _, b := range bars {
		a, z := bucket(b.Low), bucket(b.High)
		share := b.Volume / float64(z-a+1)
		for k := a; k <= z; k++ {
			levels[k].Volume += share
		}
		total += b.Volume
	}
	poc := 0
	for k := range levels {
		if levels[k].Volume > levels[poc].Volume {
			poc = k
		}
	}
	up, down := poc, poc
	acc := levels[poc].Volume
	for acc < total*ValueAreaShare && (down > 0 || up < n-1) {
		var above, below float64 = -1, -1
		if up < n-1 {
			above = levels[up+1].Volume
		}
		if down > 0 {
			below = levels[down-1].Volume
		}
		if above >= below {
			up++
			acc += above
		} else {
			down--
			acc += below
		}
	}
	return Profile{
		POC:    levels[poc].Price,
		VAH:    levels[up].Price,
		VAL:    levels[down].Price,
		Levels: levels,
	}
}
