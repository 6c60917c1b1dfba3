// Package strategy holds the signal generators. Each generator is a pure
// function of the bar history: given bars up to and including "now" it
// proposes at most one trade.
package strategy

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/evdnx/gosmc/types"
)

// Generator proposes at most one signal for the last bar of bars.
type Generator interface {
	ID() string
	Generate(bars []types.Bar) (types.Signal, bool)
}

// Kind names a generator implementation.
type Kind string

const (
	KindLiquiditySweep  Kind = "liquidity_sweep"
	KindBOSContinuation Kind = "bos_continuation"
	KindCHoCHFVG        Kind = "choch_fvg"
	KindVWAPRejection   Kind = "vwap_rejection"
	KindEMASignal       Kind = "ema_signal"
	KindRSFlip          Kind = "rs_flip"
	KindStructureBreak  Kind = "structure_break"
)

// Kinds lists every generator in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindLiquiditySweep, KindBOSContinuation, KindCHoCHFVG, KindVWAPRejection,
		KindEMASignal, KindRSFlip, KindStructureBreak,
	}
}

// DirectionFilter restricts the trade side.
type DirectionFilter string

const (
	DirectionBoth DirectionFilter = "both"
	DirectionBull DirectionFilter = "bull"
	DirectionBear DirectionFilter = "bear"
)

// Allows reports whether d passes the filter.
func (f DirectionFilter) Allows(d types.Direction) bool {
	switch f {
	case DirectionBull:
		return d == types.Long
	case DirectionBear:
		return d == types.Short
	}
	return true
}

// TrendFilter selects which bias a signal must agree with.
type TrendFilter string

const (
	TrendOff       TrendFilter = "none"
	TrendEMA       TrendFilter = "ema"
	TrendStructure TrendFilter = "structure"
	TrendBoth      TrendFilter = "both"
)

// OscillatorGate vetoes entries into overbought/oversold conditions using
// the goti indicator suite.
type OscillatorGate struct {
	Enabled       bool    `json:"enabled"`
	Bars          int     `json:"bars"` // bars fed to the suite, default 100
	RSIOverbought float64 `json:"rsiOverbought"`
	RSIOversold   float64 `json:"rsiOversold"`
	MFIOverbought float64 `json:"mfiOverbought"`
	MFIOversold   float64 `json:"mfiOversold"`
}

// Common are the filters every generator applies before emitting.
type Common struct {
	// Name overrides the generator id, so one kind can be registered twice.
	Name            string          `json:"name,omitempty"`
	Direction       DirectionFilter `json:"direction"`
	Trend           TrendFilter     `json:"trend"`
	TrendEMAPeriod  int             `json:"trendEmaPeriod"`
	StructureLength int             `json:"structureLength"`
	// MaxAgeBars is how many bars after its confirmation an event may still
	// trigger a signal.
	MaxAgeBars  int            `json:"maxAgeBars"`
	HistoryBars int            `json:"historyBars"`
	MinBars     int            `json:"minBars"`
	Oscillator  OscillatorGate `json:"oscillator"`
}

// DefaultCommon returns permissive filters.
func DefaultCommon() Common {
	return Common{
		Direction:       DirectionBoth,
		Trend:           TrendOff,
		TrendEMAPeriod:  50,
		StructureLength: 5,
		MaxAgeBars:      3,
		HistoryBars:     300,
		MinBars:         50,
		Oscillator: OscillatorGate{
			Bars:          100,
			RSIOverbought: 70,
			RSIOversold:   30,
			MFIOverbought: 80,
			MFIOversold:   20,
		},
	}
}

// Validate reports every invalid filter.
func (c Common) Validate() error {
	var err error
	switch c.Direction {
	case DirectionBoth, DirectionBull, DirectionBear:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown direction filter %q", c.Direction))
	}
	switch c.Trend {
	case TrendOff, TrendEMA, TrendStructure, TrendBoth:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown trend filter %q", c.Trend))
	}
	if c.TrendEMAPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("TrendEMAPeriod (%d) must be positive", c.TrendEMAPeriod))
	}
	if c.StructureLength <= 0 {
		err = multierr.Append(err, fmt.Errorf("StructureLength (%d) must be positive", c.StructureLength))
	}
	if c.MaxAgeBars < 0 {
		err = multierr.Append(err, errors.New("MaxAgeBars cannot be negative"))
	}
	if c.HistoryBars < c.MinBars {
		err = multierr.Append(err, fmt.Errorf("HistoryBars (%d) must be at least MinBars (%d)", c.HistoryBars, c.MinBars))
	}
	if c.MinBars < 3 {
		err = multierr.Append(err, fmt.Errorf("MinBars (%d) must be at least 3", c.MinBars))
	}
	if o := c.Oscillator; o.Enabled {
		if o.RSIOverbought <= o.RSIOversold {
			err = multierr.Append(err, errors.New("RSI overbought must be greater than oversold"))
		}
		if o.MFIOverbought <= o.MFIOversold {
			err = multierr.Append(err, errors.New("MFI overbought must be greater than oversold"))
		}
		if o.Bars <= 0 {
			err = multierr.Append(err, errors.New("Oscillator.Bars must be positive"))
		}
	}
	return err
}

// Registry holds generators in registration order.
type Registry struct {
	gens []Generator
	ids  map[string]struct{}
}

// NewRegistry registers gens in order.
func NewRegistry(gens ...Generator) (*Registry, error) {
	r := &Registry{ids: make(map[string]struct{})}
	for _, g := range gens {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends g. Ids must be unique.
func (r *Registry) Register(g Generator) error {
	if _, dup := r.ids[g.ID()]; dup {
		return fmt.Errorf("generator %q already registered", g.ID())
	}
	r.ids[g.ID()] = struct{}{}
	r.gens = append(r.gens, g)
	return nil
}

// Generators returns the registered generators.
func (r *Registry) Generators() []Generator {
	return append([]Generator(nil), r.gens...)
}

// Signals runs every generator on bars and returns the live signal of each
// one that fires, in registration order.
func (r *Registry) Signals(bars []types.Bar) []types.Signal {
	var out []types.Signal
	for _, g := range r.gens {
		if s, ok := g.Generate(bars); ok {
			out = append(out, s)
		}
	}
	return out
}
