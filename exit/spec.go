package exit

import (
	"fmt"

	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/types"
)

// Spec is the JSON shape of an exit, discriminated by Type.
type Spec struct {
	Type            types.ExitKind `json:"type"`
	SwingLength     int            `json:"swingLength,omitempty"`
	BufferPercent   float64        `json:"bufferPercent,omitempty"`
	Multiplier      float64        `json:"multiplier,omitempty"`
	Period          int            `json:"period,omitempty"`
	Ratio           float64        `json:"ratio,omitempty"`
	Anchor          string         `json:"anchor,omitempty"`
	RollingPeriod   int            `json:"rollingPeriod,omitempty"`
	Mode            string         `json:"mode,omitempty"`
	Percent         float64        `json:"percent,omitempty"`
	PositionPercent float64        `json:"positionPercent,omitempty"`
}

// Decode maps s onto its Config variant.
func (s Spec) Decode() (Config, error) {
	mode := types.ExitMode(s.Mode)
	switch s.Type {
	case types.ExitStructure:
		return Structure{SwingLength: s.SwingLength, BufferPercent: s.BufferPercent}, nil
	case types.ExitTrailing:
		return Trailing{SwingLength: s.SwingLength}, nil
	case types.ExitATR:
		return ATR{Multiplier: s.Multiplier, Period: s.Period}, nil
	case types.ExitFixedRR:
		return FixedRR{Ratio: s.Ratio}, nil
	case types.ExitVWAP:
		anchor := indicator.Anchor(s.Anchor)
		if anchor == "" {
			anchor = indicator.AnchorSession
		}
		return VWAP{Anchor: anchor, RollingPeriod: s.RollingPeriod, Mode: mode}, nil
	case types.ExitEMA:
		return EMA{Period: s.Period, Mode: mode}, nil
	case types.ExitFixedDistance:
		return FixedDistance{Percent: s.Percent}, nil
	}
	return nil, fmt.Errorf("unknown exit type %q", s.Type)
}

// SpecOf is the inverse of Decode.
func SpecOf(cfg Config) Spec {
	switch c := cfg.(type) {
	case Structure:
		return Spec{Type: c.Kind(), SwingLength: c.SwingLength, BufferPercent: c.BufferPercent}
	case Trailing:
		return Spec{Type: c.Kind(), SwingLength: c.SwingLength}
	case ATR:
		return Spec{Type: c.Kind(), Multiplier: c.Multiplier, Period: c.Period}
	case FixedRR:
		return Spec{Type: c.Kind(), Ratio: c.Ratio}
	case VWAP:
		return Spec{Type: c.Kind(), Anchor: string(c.Anchor), RollingPeriod: c.RollingPeriod, Mode: string(c.Mode)}
	case EMA:
		return Spec{Type: c.Kind(), Period: c.Period, Mode: string(c.Mode)}
	case FixedDistance:
		return Spec{Type: c.Kind(), Percent: c.Percent}
	}
	return Spec{}
}

// BotSpec is the JSON shape of a BotConfig.
type BotSpec struct {
	NumTPs int   `json:"numTPs"`
	TP1    *Spec `json:"tp1,omitempty"`
	TP2    *Spec `json:"tp2,omitempty"`
	TP3    *Spec `json:"tp3,omitempty"`
	SL     *Spec `json:"sl"`
}

// Decode builds and validates the BotConfig.
func (b BotSpec) Decode() (BotConfig, error) {
	cfg := BotConfig{NumTPs: b.NumTPs}
	dst := []**Target{&cfg.TP1, &cfg.TP2, &cfg.TP3}
	for i, s := range []*Spec{b.TP1, b.TP2, b.TP3} {
		if s == nil {
			continue
		}
		c, err := s.Decode()
		if err != nil {
			return BotConfig{}, fmt.Errorf("tp%d: %w", i+1, err)
		}
		*dst[i] = &Target{Config: c, PositionPercent: s.PositionPercent}
	}
	if b.SL != nil {
		c, err := b.SL.Decode()
		if err != nil {
			return BotConfig{}, fmt.Errorf("sl: %w", err)
		}
		cfg.SL = c
	}
	if err := cfg.Validate(); err != nil {
		return BotConfig{}, err
	}
	return cfg, nil
}

// BotSpecOf is the inverse of BotSpec.Decode.
func BotSpecOf(cfg BotConfig) BotSpec {
	out := BotSpec{NumTPs: cfg.NumTPs}
	dst := []**Spec{&out.TP1, &out.TP2, &out.TP3}
	for i, t := range []*Target{cfg.TP1, cfg.TP2, cfg.TP3} {
		if t == nil {
			continue
		}
		s := SpecOf(t.Config)
		s.PositionPercent = t.PositionPercent
		*dst[i] = &s
	}
	if cfg.SL != nil {
		s := SpecOf(cfg.SL)
		out.SL = &s
	}
	return out
}
