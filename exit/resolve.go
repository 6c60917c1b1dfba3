package exit

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// ErrNoLevel means the market context offers no valid price for the exit.
var ErrNoLevel = errors.New("no exit level available")

// DefaultSwingLength is used by VWAP fallbacks and unset structure lengths.
const DefaultSwingLength = 5

// DefaultSweepBuffer is the legacy swept-level stop buffer, in percent.
const DefaultSweepBuffer = 0.1

// Context is the market state an exit is resolved against. Bars holds
// the history and Now the signal bar; nothing after Now is read.
type Context struct {
	Entry      float64
	Direction  types.Direction
	ATR        float64
	RiskAmount float64
	Bars       []types.Bar
	Now        int
	SweptLevel float64
}

func (c Context) history() []types.Bar {
	if c.Now < 0 || c.Now >= len(c.Bars) {
		return c.Bars
	}
	return c.Bars[:c.Now+1]
}

// ResolveTarget returns the take-profit price for cfg. Trailing and EMA
// targets have no fixed level and resolve to types.NoTarget.
func ResolveTarget(cfg Config, ctx Context) (float64, error) {
	sign := ctx.Direction.Sign()
	switch c := cfg.(type) {
	case ATR:
		atr, err := atrFor(c, ctx)
		if err != nil {
			return 0, err
		}
		return ctx.Entry + sign*atr*c.Multiplier, nil
	case FixedRR:
		if ctx.RiskAmount <= 0 {
			return 0, fmt.Errorf("fixed_rr target: risk %f: %w", ctx.RiskAmount, ErrNoLevel)
		}
		return ctx.Entry + sign*ctx.RiskAmount*c.Ratio, nil
	case Structure:
		return structureTarget(swingLength(c.SwingLength), ctx)
	case VWAP:
		if v, ok := vwapAt(c, ctx); ok && (v-ctx.Entry)*sign > 0 {
			return v, nil
		}
		return structureTarget(DefaultSwingLength, ctx)
	case Trailing, EMA:
		return types.NoTarget(ctx.Direction), nil
	case FixedDistance:
		return ctx.Entry * (1 + sign*c.Percent/100), nil
	}
	return 0, fmt.Errorf("unsupported target %T", cfg)
}

// ResolveStop returns the stop-loss price for cfg. The result always
// leaves a strictly positive risk.
func ResolveStop(cfg Config, ctx Context) (float64, error) {
	sign := ctx.Direction.Sign()
	var stop float64
	switch c := cfg.(type) {
	case ATR:
		atr, err := atrFor(c, ctx)
		if err != nil {
			return 0, err
		}
		stop = ctx.Entry - sign*atr*c.Multiplier
	case Structure:
		var err error
		if stop, err = structureStop(c, ctx); err != nil {
			return 0, err
		}
	case VWAP:
		if v, ok := vwapAt(c, ctx); ok && (ctx.Entry-v)*sign > 0 {
			stop = v
			break
		}
		var err error
		if stop, err = structureStop(Structure{SwingLength: DefaultSwingLength}, ctx); err != nil {
			return 0, err
		}
	case FixedDistance:
		stop = ctx.Entry * (1 - sign*c.Percent/100)
	case FixedRR, EMA, Trailing:
		return 0, fmt.Errorf("%s: %w", cfg.Kind(), ErrTargetOnly)
	default:
		return 0, fmt.Errorf("unsupported stop %T", cfg)
	}
	if (ctx.Entry-stop)*sign <= 0 || math.IsNaN(stop) {
		return 0, fmt.Errorf("%s stop %f on the wrong side of entry %f: %w", cfg.Kind(), stop, ctx.Entry, ErrNoLevel)
	}
	return stop, nil
}

func swingLength(l int) int {
	if l <= 0 {
		return DefaultSwingLength
	}
	return l
}

func atrFor(c ATR, ctx Context) (float64, error) {
	atr := ctx.ATR
	if c.Period > 0 {
		v, ok := indicator.ATR(ctx.history(), c.Period).Last()
		if !ok {
			return 0, fmt.Errorf("atr(%d) undefined: %w", c.Period, ErrNoLevel)
		}
		atr = v
	}
	if atr <= 0 || math.IsNaN(atr) {
		return 0, fmt.Errorf("atr %f: %w", atr, ErrNoLevel)
	}
	return atr, nil
}

func vwapAt(c VWAP, ctx Context) (float64, bool) {
	return indicator.VWAP(ctx.history(), c.Anchor, c.RollingPeriod).Last()
}

// structureTarget picks the nearest swing beyond entry that price has not
// traded through since it formed.
func structureTarget(length int, ctx Context) (float64, error) {
	bars := ctx.history()
	kind := types.SwingHigh
	if ctx.Direction == types.Short {
		kind = types.SwingLow
	}
	sign := ctx.Direction.Sign()
	best, found := 0.0, false
	for _, s := range structure.Filter(structure.DetectSwings(bars, length), kind) {
		if (s.Price-ctx.Entry)*sign <= 0 || consumed(bars, s) {
			continue
		}
		if !found || (s.Price-best)*sign < 0 {
			best, found = s.Price, true
		}
	}
	if !found {
		return 0, fmt.Errorf("structure target: %w", ErrNoLevel)
	}
	return best, nil
}

func consumed(bars []types.Bar, s types.SwingPoint) bool {
	for j := s.Index + 1; j < len(bars); j++ {
		if s.Kind == types.SwingHigh && bars[j].High > s.Price {
			return true
		}
		if s.Kind == types.SwingLow && bars[j].Low < s.Price {
			return true
		}
	}
	return false
}

// structureStop places the stop beyond the most recent swing on the risk
// side, or beyond the swept level when no swing length is configured.
func structureStop(c Structure, ctx Context) (float64, error) {
	sign := ctx.Direction.Sign()
	if c.SwingLength == 0 {
		if ctx.SweptLevel == 0 {
			return 0, fmt.Errorf("structure stop: no swing length and no swept level: %w", ErrNoLevel)
		}
		buf := c.BufferPercent
		if buf == 0 {
			buf = DefaultSweepBuffer
		}
		return ctx.SweptLevel * (1 - sign*buf/100), nil
	}
	kind := types.SwingLow
	if ctx.Direction == types.Short {
		kind = types.SwingHigh
	}
	swings := structure.Filter(structure.DetectSwings(ctx.history(), c.SwingLength), kind)
	for i := len(swings) - 1; i >= 0; i-- {
		if (ctx.Entry-swings[i].Price)*sign > 0 {
			return swings[i].Price * (1 - sign*c.BufferPercent/100), nil
		}
	}
	return 0, fmt.Errorf("structure stop: %w", ErrNoLevel)
}
