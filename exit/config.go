// Package exit turns declarative take-profit and stop-loss configuration
// into concrete price levels.
package exit

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/types"
)

// Config is one exit variant. The set of implementations is closed.
type Config interface {
	Kind() types.ExitKind
	String() string
	validate(asStop bool) error
}

// Structure exits at swing levels. As a stop with SwingLength 0 it falls
// back to the signal's swept level.
type Structure struct {
	SwingLength   int
	BufferPercent float64
}

// Trailing follows confirmed swings once the trade is in profit. TP only.
type Trailing struct {
	SwingLength int
}

// ATR offsets the entry by a multiple of ATR. Period 0 uses the ATR the
// caller supplies.
type ATR struct {
	Multiplier float64
	Period     int
}

// FixedRR targets a multiple of the initial risk. TP only.
type FixedRR struct {
	Ratio float64
}

// VWAP exits at the current VWAP of the anchor. In cross mode the
// simulator also closes on a close through the VWAP.
type VWAP struct {
	Anchor        indicator.Anchor
	RollingPeriod int
	Mode          types.ExitMode
}

// EMA exits on an EMA touch or cross. TP only.
type EMA struct {
	Period int
	Mode   types.ExitMode
}

// FixedDistance is a fixed percentage away from entry.
type FixedDistance struct {
	Percent float64
}

func (Structure) Kind() types.ExitKind     { return types.ExitStructure }
func (Trailing) Kind() types.ExitKind      { return types.ExitTrailing }
func (ATR) Kind() types.ExitKind           { return types.ExitATR }
func (FixedRR) Kind() types.ExitKind       { return types.ExitFixedRR }
func (VWAP) Kind() types.ExitKind          { return types.ExitVWAP }
func (EMA) Kind() types.ExitKind           { return types.ExitEMA }
func (FixedDistance) Kind() types.ExitKind { return types.ExitFixedDistance }

func (c Structure) String() string {
	return fmt.Sprintf("structure(len=%d,buf=%g%%)", c.SwingLength, c.BufferPercent)
}
func (c Trailing) String() string      { return fmt.Sprintf("trailing(len=%d)", c.SwingLength) }
func (c ATR) String() string           { return fmt.Sprintf("atr(%gx,p=%d)", c.Multiplier, c.Period) }
func (c FixedRR) String() string       { return fmt.Sprintf("rr(%g)", c.Ratio) }
func (c VWAP) String() string          { return fmt.Sprintf("vwap(%s,%s)", c.Anchor, c.Mode) }
func (c EMA) String() string           { return fmt.Sprintf("ema(%d,%s)", c.Period, c.Mode) }
func (c FixedDistance) String() string { return fmt.Sprintf("fixed(%g%%)", c.Percent) }

// ErrTargetOnly is returned when a TP-only kind is configured as a stop.
var ErrTargetOnly = errors.New("exit kind can not be used as a stop loss")

func (c Structure) validate(bool) error {
	var err error
	if c.SwingLength < 0 {
		err = multierr.Append(err, fmt.Errorf("structure: SwingLength (%d) cannot be negative", c.SwingLength))
	}
	if c.BufferPercent < 0 || c.BufferPercent >= 100 {
		err = multierr.Append(err, fmt.Errorf("structure: BufferPercent (%f) must be in [0,100)", c.BufferPercent))
	}
	return err
}

func (c Trailing) validate(asStop bool) error {
	var err error
	if asStop {
		err = multierr.Append(err, fmt.Errorf("trailing: %w", ErrTargetOnly))
	}
	if c.SwingLength <= 0 {
		err = multierr.Append(err, fmt.Errorf("trailing: SwingLength (%d) must be positive", c.SwingLength))
	}
	return err
}

func (c ATR) validate(bool) error {
	var err error
	if c.Multiplier <= 0 {
		err = multierr.Append(err, fmt.Errorf("atr: Multiplier (%f) must be positive", c.Multiplier))
	}
	if c.Period < 0 {
		err = multierr.Append(err, fmt.Errorf("atr: Period (%d) cannot be negative", c.Period))
	}
	return err
}

func (c FixedRR) validate(asStop bool) error {
	var err error
	if asStop {
		err = multierr.Append(err, fmt.Errorf("fixed_rr: %w", ErrTargetOnly))
	}
	if c.Ratio <= 0 {
		err = multierr.Append(err, fmt.Errorf("fixed_rr: Ratio (%f) must be positive", c.Ratio))
	}
	return err
}

func (c VWAP) validate(bool) error {
	var err error
	if !c.Anchor.Valid() {
		err = multierr.Append(err, fmt.Errorf("vwap: unknown anchor %q", c.Anchor))
	}
	if c.Anchor == indicator.AnchorRolling && c.RollingPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("vwap: RollingPeriod (%d) must be positive for a rolling anchor", c.RollingPeriod))
	}
	return multierr.Append(err, validMode("vwap", c.Mode))
}

func (c EMA) validate(asStop bool) error {
	var err error
	if asStop {
		err = multierr.Append(err, fmt.Errorf("ema: %w", ErrTargetOnly))
	}
	if c.Period <= 0 {
		err = multierr.Append(err, fmt.Errorf("ema: Period (%d) must be positive", c.Period))
	}
	return multierr.Append(err, validMode("ema", c.Mode))
}

func (c FixedDistance) validate(bool) error {
	if c.Percent <= 0 || c.Percent >= 100 {
		return fmt.Errorf("fixed_distance: Percent (%f) must be in (0,100)", c.Percent)
	}
	return nil
}

func validMode(kind string, m types.ExitMode) error {
	switch m {
	case "", types.ModeTouch, types.ModeCross:
		return nil
	}
	return fmt.Errorf("%s: unknown mode %q", kind, m)
}

// Target is a take-profit level and the share of the position it closes.
type Target struct {
	Config
	PositionPercent float64
}

// BotConfig is the full exit plan of a strategy.
type BotConfig struct {
	NumTPs int
	TP1    *Target
	TP2    *Target
	TP3    *Target
	SL     Config
}

// Targets returns the configured TP levels in order.
func (b BotConfig) Targets() []Target {
	var out []Target
	for i, t := range []*Target{b.TP1, b.TP2, b.TP3} {
		if i >= b.NumTPs || t == nil {
			break
		}
		out = append(out, *t)
	}
	return out
}

// Validate reports every problem with the plan.
func (b BotConfig) Validate() error {
	var err error
	if b.NumTPs < 1 || b.NumTPs > 3 {
		err = multierr.Append(err, fmt.Errorf("NumTPs (%d) must be 1, 2 or 3", b.NumTPs))
	}
	var sum float64
	for i, t := range []*Target{b.TP1, b.TP2, b.TP3} {
		want := i < b.NumTPs
		switch {
		case want && t == nil:
			err = multierr.Append(err, fmt.Errorf("TP%d is required when NumTPs is %d", i+1, b.NumTPs))
			continue
		case !want && t != nil:
			err = multierr.Append(err, fmt.Errorf("TP%d is set but NumTPs is %d", i+1, b.NumTPs))
			continue
		case t == nil:
			continue
		}
		if t.Config == nil {
			err = multierr.Append(err, fmt.Errorf("TP%d has no exit type", i+1))
			continue
		}
		if t.PositionPercent < 0 || t.PositionPercent > 100 {
			err = multierr.Append(err, fmt.Errorf("TP%d PositionPercent (%f) must be in [0,100]", i+1, t.PositionPercent))
		}
		sum += t.PositionPercent
		if e := t.validate(false); e != nil {
			err = multierr.Append(err, fmt.Errorf("TP%d: %w", i+1, e))
		}
	}
	if sum > 100 {
		err = multierr.Append(err, fmt.Errorf("TP position percents sum to %f, more than 100", sum))
	}
	if b.SL == nil {
		err = multierr.Append(err, errors.New("SL is required"))
	} else if e := b.SL.validate(true); e != nil {
		err = multierr.Append(err, fmt.Errorf("SL: %w", e))
	}
	return err
}

// DefaultBotConfig is a single 2R target with a structure stop.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		NumTPs: 1,
		TP1:    &Target{Config: FixedRR{Ratio: 2}, PositionPercent: 100},
		SL:     Structure{SwingLength: DefaultSwingLength, BufferPercent: DefaultSweepBuffer},
	}
}
