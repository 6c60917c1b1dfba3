package types

import (
	"errors"
	"fmt"
	"math"
)

// Bar is one OHLCV candle. Time is unix seconds.
type Bar struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TypicalPrice returns (H+L+C)/3.
func (b Bar) TypicalPrice() float64 { return (b.High + b.Low + b.Close) / 3 }

// ErrUnordered is returned by ValidateBars when timestamps are not strictly increasing.
var ErrUnordered = errors.New("bar times must be strictly increasing")

// ValidateBars checks the input contract shared by every pipeline stage.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d (t=%d): non-finite value", i, b.Time)
			}
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d (t=%d): negative volume %f", i, b.Time, b.Volume)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d (t=%d): high %f below low %f", i, b.Time, b.High, b.Low)
		}
		if i > 0 && b.Time <= bars[i-1].Time {
			return fmt.Errorf("bar %d (t=%d, prev t=%d): %w", i, b.Time, bars[i-1].Time, ErrUnordered)
		}
	}
	return nil
}

// Closes extracts the close column.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

type Direction int

const (
	Long Direction = iota + 1
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "NONE"
}

// Sign is +1 for Long and -1 for Short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite flips the direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Trend is the running market-structure bias.
type Trend int

const (
	TrendNone Trend = iota
	Bullish
	Bearish
)

func (t Trend) String() string {
	switch t {
	case Bullish:
		return "BULLISH"
	case Bearish:
		return "BEARISH"
	}
	return "NONE"
}

// Direction maps a trend onto the trade direction that agrees with it.
func (t Trend) Direction() (Direction, bool) {
	switch t {
	case Bullish:
		return Long, true
	case Bearish:
		return Short, true
	}
	return 0, false
}

// TrendOf is the inverse of Trend.Direction.
func TrendOf(d Direction) Trend {
	if d == Long {
		return Bullish
	}
	return Bearish
}

type SwingKind int

const (
	SwingHigh SwingKind = iota + 1
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "HIGH"
	}
	return "LOW"
}

// SwingPoint is a confirmed pivot at bar Index.
type SwingPoint struct {
	Time  int64
	Price float64
	Kind  SwingKind
	Index int
}

// ExitKind names a TP/SL variant.
type ExitKind string

const (
	ExitStructure     ExitKind = "structure"
	ExitTrailing      ExitKind = "trailing"
	ExitATR           ExitKind = "atr"
	ExitFixedRR       ExitKind = "fixed_rr"
	ExitVWAP          ExitKind = "vwap"
	ExitEMA           ExitKind = "ema"
	ExitFixedDistance ExitKind = "fixed_distance"
)

// ExitMode selects how an indicator-based exit fires.
type ExitMode string

const (
	ModeTouch ExitMode = "touch"
	ModeCross ExitMode = "cross"
)

// NoTarget is the sentinel price used by exits that have no fixed level.
func NoTarget(d Direction) float64 {
	if d == Short {
		return math.Inf(-1)
	}
	return math.Inf(1)
}
