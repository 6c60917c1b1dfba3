package indicator

import (
	"math"

	"github.com/evdnx/gosmc/types"
)

// TrueRange of bar i. The first bar has no previous close and uses its
// high-low range.
func TrueRange(bars []types.Bar, i int) float64 {
	b := bars[i]
	tr := b.High - b.Low
	if i == 0 {
		return tr
	}
	pc := bars[i-1].Close
	return math.Max(tr, math.Max(math.Abs(b.High-pc), math.Abs(b.Low-pc)))
}

// ATR with Wilder smoothing. The first value, at index period-1, is the
// mean of the first `period` true ranges.
func ATR(bars []types.Bar, period int) Series {
	if period <= 0 || len(bars) < period {
		return Series{}
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += TrueRange(bars, i)
	}
	atr := seed / float64(period)
	out := make([]float64, 0, len(bars)-period+1)
	out = append(out, atr)
	for i := period; i < len(bars); i++ {
		atr = (atr*float64(period-1) + TrueRange(bars, i)) / float64(period)
		out = append(out, atr)
	}
	return Series{Offset: period - 1, Values: out}
}

// ADXResult holds the directional movement lines. PlusDI and MinusDI
// start at index period; ADX starts at 2*period-1.
type ADXResult struct {
	ADX     Series
	PlusDI  Series
	MinusDI Series
}

// ADX computes Wilder's average directional index.
func ADX(bars []types.Bar, period int) ADXResult {
	if period <= 0 || len(bars) <= period {
		return ADXResult{}
	}
	p := float64(period)
	var sTR, sPlus, sMinus float64
	var plusDI, minusDI, dx []float64
	for i := 1; i < len(bars); i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		var pdm, mdm float64
		if up > down && up > 0 {
			pdm = up
		}
		if down > up && down > 0 {
			mdm = down
		}
		tr := TrueRange(bars, i)
		if i <= period {
			sTR += tr
			sPlus += pdm
			sMinus += mdm
			if i < period {
				continue
			}
		} else {
			sTR = sTR - sTR/p + tr
			sPlus = sPlus - sPlus/p + pdm
			sMinus = sMinus - sMinus/p + mdm
		}
		var pdi, mdi float64
		if sTR != 0 {
			pdi = 100 * sPlus / sTR
			mdi = 100 * sMinus / sTR
		}
		plusDI = append(plusDI, pdi)
		minusDI = append(minusDI, mdi)
		var d float64
		if sum := pdi + mdi; sum != 0 {
			d = 100 * math.Abs(pdi-mdi) / sum
		}
		dx = append(dx, d)
	}
	res := ADXResult{
		PlusDI:  Series{Offset: period, Values: plusDI},
		MinusDI: Series{Offset: period, Values: minusDI},
	}
	if len(dx) < period {
		return res
	}
	var adx float64
	for _, v := range dx[:period] {
		adx += v
	}
	adx /= p
	out := make([]float64, 0, len(dx)-period+1)
	out = append(out, adx)
	for _, v := range dx[period:] {
		adx = (adx*(p-1) + v) / p
		out = append(out, adx)
	}
	res.ADX = Series{Offset: 2*period - 1, Values: out}
	return res
}
