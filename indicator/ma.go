package indicator

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// SMA over the last `period` points. Offset is period-1.
func SMA(x []float64, period int) Series {
	if period <= 0 || len(x) < period {
		return Series{}
	}
	out := make([]float64, 0, len(x)-period+1)
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= period {
			sum -= x[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return Series{Offset: period - 1, Values: out}
}

// EMA (smoothing 2/(p+1)) seeded with the first sample, so it is defined
// for every input index.
func EMA(x []float64, period int) Series {
	if period <= 0 || len(x) == 0 {
		return Series{}
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(x))
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = (x[i]-out[i-1])*k + out[i-1]
	}
	return Series{Values: out}
}

// EMAOf is EMA over bar closes.
func EMAOf(bars []types.Bar, period int) Series { return EMA(types.Closes(bars), period) }

// Bands is a Bollinger envelope.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger bands using a population standard deviation.
func Bollinger(x []float64, period int, stdDev float64) Bands {
	mid := SMA(x, period)
	if mid.Empty() {
		return Bands{}
	}
	up := make([]float64, mid.Len())
	lo := make([]float64, mid.Len())
	for k, m := range mid.Values {
		i := k + mid.Offset
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := x[j] - m
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		up[k] = m + stdDev*sd
		lo[k] = m - stdDev*sd
	}
	return Bands{
		Upper:  Series{Offset: mid.Offset, Values: up},
		Middle: mid,
		Lower:  Series{Offset: mid.Offset, Values: lo},
	}
}
