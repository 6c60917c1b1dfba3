// Package sweep runs a backtest for every combination of a parameter
// space and ranks the results.
package sweep

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/strategy"
	"github.com/evdnx/gosmc/types"
)

// IntRange is an inclusive stepped range.
type IntRange struct {
	Enabled bool `json:"enabled"`
	Min     int  `json:"min"`
	Max     int  `json:"max"`
	Step    int  `json:"step"`
}

// Values lists Min, Min+Step, ... up to Max.
func (r IntRange) Values() []int {
	var out []int
	for v := r.Min; v <= r.Max; v += r.Step {
		out = append(out, v)
	}
	return out
}

func (r IntRange) validate(name string) error {
	if !r.Enabled {
		return nil
	}
	if r.Step <= 0 || r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("%s: need 0 < Min <= Max and a positive Step, got %d..%d step %d", name, r.Min, r.Max, r.Step)
	}
	return nil
}

// FloatRange is an inclusive stepped range. Values are computed by index,
// so the last one does not drift.
type FloatRange struct {
	Enabled bool    `json:"enabled"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

// Values lists Min, Min+Step, ... up to Max.
func (r FloatRange) Values() []float64 {
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*r.Step
	}
	return out
}

func (r FloatRange) validate(name string) error {
	if !r.Enabled {
		return nil
	}
	if r.Step <= 0 || r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("%s: need 0 < Min <= Max and a positive Step, got %g..%g step %g", name, r.Min, r.Max, r.Step)
	}
	return nil
}

// TrendFilters toggles the trend filter dimension.
type TrendFilters struct {
	Enabled bool                   `json:"enabled"`
	Values  []strategy.TrendFilter `json:"values"`
}

// Directions toggles the direction filter dimension.
type Directions struct {
	Enabled bool                       `json:"enabled"`
	Values  []strategy.DirectionFilter `json:"values"`
}

// StopKinds toggles the stop-loss kind dimension.
type StopKinds struct {
	Enabled bool             `json:"enabled"`
	Values  []types.ExitKind `json:"values"`
}

// Space is the set of swept dimensions. Disabled dimensions keep the base
// value.
type Space struct {
	Trend         TrendFilters `json:"trend"`
	Direction     Directions   `json:"direction"`
	StopKind      StopKinds    `json:"stopKind"`
	SwingLength   IntRange     `json:"swingLength"`
	EMAPeriod     IntRange     `json:"emaPeriod"`
	ATRMultiplier FloatRange   `json:"atrMultiplier"`
	RRRatio       FloatRange   `json:"rrRatio"`
}

// Validate reports every malformed dimension.
func (s Space) Validate() error {
	var err error
	if s.Trend.Enabled && len(s.Trend.Values) == 0 {
		err = multierr.Append(err, errors.New("trend: enabled with no values"))
	}
	if s.Direction.Enabled && len(s.Direction.Values) == 0 {
		err = multierr.Append(err, errors.New("direction: enabled with no values"))
	}
	if s.StopKind.Enabled {
		if len(s.StopKind.Values) == 0 {
			err = multierr.Append(err, errors.New("stopKind: enabled with no values"))
		}
		for _, k := range s.StopKind.Values {
			if _, e := stopFor(k, Params{SwingLength: 1, ATRMultiplier: 1}); e != nil {
				err = multierr.Append(err, e)
			}
		}
	}
	err = multierr.Append(err, s.SwingLength.validate("swingLength"))
	err = multierr.Append(err, s.EMAPeriod.validate("emaPeriod"))
	err = multierr.Append(err, s.ATRMultiplier.validate("atrMultiplier"))
	err = multierr.Append(err, s.RRRatio.validate("rrRatio"))
	return err
}

// Params is one point of the space.
type Params struct {
	Trend         strategy.TrendFilter     `json:"trend"`
	Direction     strategy.DirectionFilter `json:"direction"`
	StopKind      types.ExitKind           `json:"stopKind"`
	SwingLength   int                      `json:"swingLength"`
	EMAPeriod     int                      `json:"emaPeriod"`
	ATRMultiplier float64                  `json:"atrMultiplier"`
	RRRatio       float64                  `json:"rrRatio"`
}

func (p Params) String() string {
	return fmt.Sprintf("trend=%s dir=%s sl=%s swing=%d ema=%d atr=%g rr=%g",
		p.Trend, p.Direction, p.StopKind, p.SwingLength, p.EMAPeriod, p.ATRMultiplier, p.RRRatio)
}

// Expand builds the Cartesian product of the enabled dimensions, in
// dimension order with the last dimension varying fastest.
func (s Space) Expand(base Params) []Params {
	out := []Params{base}
	expand := func(n int, set func(p *Params, i int)) {
		next := make([]Params, 0, len(out)*n)
		for _, p := range out {
			for i := 0; i < n; i++ {
				q := p
				set(&q, i)
				next = append(next, q)
			}
		}
		out = next
	}
	if s.Trend.Enabled {
		expand(len(s.Trend.Values), func(p *Params, i int) { p.Trend = s.Trend.Values[i] })
	}
	if s.Direction.Enabled {
		expand(len(s.Direction.Values), func(p *Params, i int) { p.Direction = s.Direction.Values[i] })
	}
	if s.StopKind.Enabled {
		expand(len(s.StopKind.Values), func(p *Params, i int) { p.StopKind = s.StopKind.Values[i] })
	}
	if s.SwingLength.Enabled {
		vs := s.SwingLength.Values()
		expand(len(vs), func(p *Params, i int) { p.SwingLength = vs[i] })
	}
	if s.EMAPeriod.Enabled {
		vs := s.EMAPeriod.Values()
		expand(len(vs), func(p *Params, i int) { p.EMAPeriod = vs[i] })
	}
	if s.ATRMultiplier.Enabled {
		vs := s.ATRMultiplier.Values()
		expand(len(vs), func(p *Params, i int) { p.ATRMultiplier = vs[i] })
	}
	if s.RRRatio.Enabled {
		vs := s.RRRatio.Values()
		expand(len(vs), func(p *Params, i int) { p.RRRatio = vs[i] })
	}
	return out
}

// Base is the strategy every combination starts from.
type Base struct {
	Kind     strategy.Kind     `json:"kind"`
	Settings strategy.Settings `json:"settings"`
	Common   strategy.Common   `json:"common"`
	Bot      exit.BotConfig    `json:"-"`
}

// Defaults reads the value of every dimension from the base strategy.
// Disabled dimensions keep these.
func (b Base) Defaults() Params {
	s, c, bot := b.Settings, b.Common, b.Bot
	p := Params{
		Trend:         c.Trend,
		Direction:     c.Direction,
		SwingLength:   exit.DefaultSwingLength,
		EMAPeriod:     c.TrendEMAPeriod,
		ATRMultiplier: 1.5,
		RRRatio:       2,
	}
	if bot.SL != nil {
		p.StopKind = bot.SL.Kind()
	}
	if n, ok := s.SwingLengthOf(b.Kind); ok {
		p.SwingLength = n
	} else if st, ok := bot.SL.(exit.Structure); ok && st.SwingLength > 0 {
		p.SwingLength = st.SwingLength
	}
	if b.Kind == strategy.KindEMASignal {
		p.EMAPeriod = s.EMASignal.Period
	}
	if a, ok := bot.SL.(exit.ATR); ok {
		p.ATRMultiplier = a.Multiplier
	}
	if bot.TP1 != nil {
		if rr, ok := bot.TP1.Config.(exit.FixedRR); ok {
			p.RRRatio = rr.Ratio
		}
	}
	return p
}

// Apply maps p onto a copy of the base configuration. Only the dimensions
// enabled in sp are written; the others keep the base settings untouched.
// The EMA period dimension drives the EMA generator itself, or the trend
// filter EMA for every other kind.
func (p Params) Apply(b Base, sp Space) (strategy.Settings, strategy.Common, exit.BotConfig, error) {
	s, c := b.Settings, b.Common
	if sp.Trend.Enabled {
		c.Trend = p.Trend
	}
	if sp.Direction.Enabled {
		c.Direction = p.Direction
	}
	if sp.SwingLength.Enabled {
		s.SetSwingLength(p.SwingLength)
	}
	if sp.EMAPeriod.Enabled {
		if b.Kind == strategy.KindEMASignal {
			s.SetEMAPeriod(p.EMAPeriod)
		} else {
			c.TrendEMAPeriod = p.EMAPeriod
		}
	}

	bot := b.Bot
	for _, tp := range []**exit.Target{&bot.TP1, &bot.TP2, &bot.TP3} {
		if *tp != nil {
			t := **tp
			*tp = &t
		}
	}
	if sp.RRRatio.Enabled && bot.TP1 != nil {
		if _, ok := bot.TP1.Config.(exit.FixedRR); ok {
			bot.TP1.Config = exit.FixedRR{Ratio: p.RRRatio}
		}
	}
	if b.Bot.SL != nil && p.StopKind == b.Bot.SL.Kind() {
		// Keep the base stop's own settings, only the swept fields change.
		bot.SL = retune(b.Bot.SL, p, sp)
		return s, c, bot, nil
	}
	sl, err := stopFor(p.StopKind, p)
	if err != nil {
		return s, c, bot, err
	}
	bot.SL = sl
	return s, c, bot, nil
}

func stopFor(k types.ExitKind, p Params) (exit.Config, error) {
	switch k {
	case types.ExitStructure:
		return exit.Structure{SwingLength: p.SwingLength, BufferPercent: exit.DefaultSweepBuffer}, nil
	case types.ExitATR:
		return exit.ATR{Multiplier: p.ATRMultiplier, Period: 14}, nil
	case types.ExitFixedDistance:
		return exit.FixedDistance{Percent: 1}, nil
	case types.ExitVWAP:
		return exit.VWAP{Anchor: indicator.AnchorDaily}, nil
	}
	return nil, fmt.Errorf("stopKind: %q cannot be swept as a stop", k)
}

func retune(sl exit.Config, p Params, sp Space) exit.Config {
	switch c := sl.(type) {
	case exit.Structure:
		if sp.SwingLength.Enabled && c.SwingLength > 0 {
			c.SwingLength = p.SwingLength
		}
		return c
	case exit.ATR:
		if sp.ATRMultiplier.Enabled {
			c.Multiplier = p.ATRMultiplier
		}
		return c
	}
	return sl
}
