package indicator

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// RSI with Wilder smoothing. The first value sits at index `period` and is
// seeded with the simple average of the first `period` changes. When the
// average loss is zero the RSI is 100.
func RSI(x []float64, period int) Series {
	if period <= 0 || len(x) <= period {
		return Series{}
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := x[i] - x[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	out := make([]float64, 0, len(x)-period)
	out = append(out, rsiValue(gain, loss))
	for i := period + 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
		out = append(out, rsiValue(gain, loss))
	}
	return Series{Offset: period, Values: out}
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// MACDResult holds the three MACD lines, all starting at index slow-1.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD of x. The signal line is an EMA of the MACD line seeded with its
// first value.
func MACD(x []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(x) < slow {
		return MACDResult{}
	}
	f := EMA(x, fast).Values
	s := EMA(x, slow).Values
	line := make([]float64, 0, len(x)-slow+1)
	for i := slow - 1; i < len(x); i++ {
		line = append(line, f[i]-s[i])
	}
	sig := EMA(line, signal).Values
	hist := make([]float64, len(line))
	for i := range line {
		hist[i] = line[i] - sig[i]
	}
	off := slow - 1
	return MACDResult{
		MACD:      Series{Offset: off, Values: line},
		Signal:    Series{Offset: off, Values: sig},
		Histogram: Series{Offset: off, Values: hist},
	}
}

// StochRSIResult holds the smoothed %K and %D lines.
type StochRSIResult struct {
	K Series
	D Series
}

// StochRSI is the stochastic oscillator applied to RSI. A flat RSI window
// yields 50.
func StochRSI(x []float64, rsiPeriod, stochPeriod, kPeriod, dPeriod int) StochRSIResult {
	rsi := RSI(x, rsiPeriod)
	if stochPeriod <= 0 || rsi.Len() < stochPeriod {
		return StochRSIResult{}
	}
	raw := make([]float64, 0, rsi.Len()-stochPeriod+1)
	for k := stochPeriod - 1; k < rsi.Len(); k++ {
		lo, hi := windowMinMax(rsi.Values[k-stochPeriod+1 : k+1])
		if hi == lo {
			raw = append(raw, 50)
			continue
		}
		raw = append(raw, (rsi.Values[k]-lo)/(hi-lo)*100)
	}
	stoch := Series{Offset: rsi.Offset + stochPeriod - 1, Values: raw}
	kLine := smaOf(stoch, kPeriod)
	return StochRSIResult{K: kLine, D: smaOf(kLine, dPeriod)}
}

// WilliamsR over `period` bars. A flat range yields -50.
func WilliamsR(bars []types.Bar, period int) Series {
	if period <= 0 || len(bars) < period {
		return Series{}
	}
	out := make([]float64, 0, len(bars)-period+1)
	for i := period - 1; i < len(bars); i++ {
		hh, ll := bars[i].High, bars[i].Low
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, bars[j].High)
			ll = math.Min(ll, bars[j].Low)
		}
		if hh == ll {
			out = append(out, -50)
			continue
		}
		out = append(out, (hh-bars[i].Close)/(hh-ll)*-100)
	}
	return Series{Offset: period - 1, Values: out}
}

// CCI (commodity channel index) over typical price. Zero mean deviation
// yields 0.
func CCI(bars []types.Bar, period int) Series {
	if period <= 0 || len(bars) < period {
		return Series{}
	}
	tp := make([]float64, len(bars))
	for i, b := range bars {
		tp[i] = b.TypicalPrice()
	}
	sma := SMA(tp, period)
	out := make([]float64, sma.Len())
	for k, m := range sma.Values {
		i := k + sma.Offset
		var md float64
		for j := i - period + 1; j <= i; j++ {
			md += math.Abs(tp[j] - m)
		}
		md /= float64(period)
		if md == 0 {
			continue
		}
		out[k] = (tp[i] - m) / (0.015 * md)
	}
	return Series{Offset: sma.Offset, Values: out}
}
