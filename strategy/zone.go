package strategy

import (
	"fmt"

	"github.com/evdnx/gosmc/types"
)

// ZoneMode is how price must interact with a level zone.
type ZoneMode string

const (
	// ZoneBounce: price tests the zone and closes back on the side it came from.
	ZoneBounce ZoneMode = "bounce"
	// ZoneCross: price closes through the whole zone.
	ZoneCross ZoneMode = "cross"
)

// Confirmation is the number of candles a zone signal needs.
type Confirmation string

const (
	ConfirmSingle Confirmation = "single"
	// ConfirmDouble needs the trigger on the previous bar and a follow-through
	// candle on the current one.
	ConfirmDouble Confirmation = "double"
)

func validZone(mode ZoneMode, conf Confirmation, zonePct float64) error {
	if mode != ZoneBounce && mode != ZoneCross {
		return fmt.Errorf("unknown zone mode %q", mode)
	}
	if conf != ConfirmSingle && conf != ConfirmDouble {
		return fmt.Errorf("unknown confirmation %q", conf)
	}
	if zonePct < 0 {
		return fmt.Errorf("ZonePercent (%f) cannot be negative", zonePct)
	}
	return nil
}

// zoneTrigger checks bar i against level[i] ± zonePct%. level is aligned
// with bars.
func zoneTrigger(bars []types.Bar, level []float64, i int, zonePct float64, mode ZoneMode) (types.Direction, bool) {
	if i < 1 {
		return 0, false
	}
	b, prev := bars[i], bars[i-1]
	hi, lo := level[i]*(1+zonePct/100), level[i]*(1-zonePct/100)
	prevLevel := level[i-1]
	switch mode {
	case ZoneBounce:
		if prev.Close > prevLevel && b.Low <= hi && b.Close > hi {
			return types.Long, true
		}
		if prev.Close < prevLevel && b.High >= lo && b.Close < lo {
			return types.Short, true
		}
	case ZoneCross:
		pHi, pLo := prevLevel*(1+zonePct/100), prevLevel*(1-zonePct/100)
		if prev.Close < pLo && b.Close > hi {
			return types.Long, true
		}
		if prev.Close > pHi && b.Close < lo {
			return types.Short, true
		}
	}
	return 0, false
}

// zoneSignal applies the confirmation rule and returns the direction and
// the index of the trigger bar.
func zoneSignal(bars []types.Bar, level []float64, zonePct float64, mode ZoneMode, conf Confirmation) (types.Direction, int, bool) {
	now := len(bars) - 1
	if conf != ConfirmDouble {
		d, ok := zoneTrigger(bars, level, now, zonePct, mode)
		return d, now, ok
	}
	d, ok := zoneTrigger(bars, level, now-1, zonePct, mode)
	if !ok {
		return 0, 0, false
	}
	b := bars[now]
	edge := level[now] * (1 + d.Sign()*zonePct/100)
	if (b.Close-b.Open)*d.Sign() <= 0 || (b.Close-edge)*d.Sign() <= 0 {
		return 0, 0, false
	}
	return d, now - 1, true
}
