package strategy

import (
	"fmt"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/types"
)

// EMAMode selects the EMA setup.
type EMAMode string

const (
	EMABounce EMAMode = "bounce"
	EMACross  EMAMode = "cross"
	// EMATrend trades the fast/slow crossover.
	EMATrend EMAMode = "trend"
)

// EMASignalParams tunes EMASignal.
type EMASignalParams struct {
	Mode         EMAMode      `json:"mode"`
	Period       int          `json:"period"`
	FastPeriod   int          `json:"fastPeriod"`
	SlowPeriod   int          `json:"slowPeriod"`
	ZonePercent  float64      `json:"zonePercent"`
	Confirmation Confirmation `json:"confirmation"`
}

// EMASignal trades price interaction with one EMA zone, or the crossover of
// a fast and a slow EMA.
type EMASignal struct {
	*BaseStrategy
	p EMASignalParams
}

// NewEMASignal validates p and the shared configuration.
func NewEMASignal(p EMASignalParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*EMASignal, error) {

	switch p.Mode {
	case EMABounce, EMACross:
		if p.Period <= 0 {
			return nil, fmt.Errorf("ema signal: Period (%d) must be positive", p.Period)
		}
		if err := validZone(ZoneMode(p.Mode), p.Confirmation, p.ZonePercent); err != nil {
			return nil, fmt.Errorf("ema signal: %w", err)
		}
	case EMATrend:
		if p.FastPeriod <= 0 || p.SlowPeriod <= p.FastPeriod {
			return nil, fmt.Errorf("ema signal: need 0 < FastPeriod (%d) < SlowPeriod (%d)", p.FastPeriod, p.SlowPeriod)
		}
	default:
		return nil, fmt.Errorf("ema signal: unknown mode %q", p.Mode)
	}
	base, err := NewBaseStrategy(string(KindEMASignal), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &EMASignal{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *EMASignal) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	now := len(win) - 1
	closes := types.Closes(win)
	if s.p.Mode == EMATrend {
		fast := indicator.EMA(closes, s.p.FastPeriod).Values
		slow := indicator.EMA(closes, s.p.SlowPeriod).Values
		var dir types.Direction
		switch {
		case fast[now-1] <= slow[now-1] && fast[now] > slow[now]:
			dir = types.Long
		case fast[now-1] >= slow[now-1] && fast[now] < slow[now]:
			dir = types.Short
		default:
			return types.Signal{}, false
		}
		return s.emit(win, off, candidate{
			dir:        dir,
			entry:      win[now].Close,
			eventTime:  win[now].Time,
			confirm:    now,
			sweptLevel: slow[now],
			reason:     fmt.Sprintf("ema %d/%d crossover", s.p.FastPeriod, s.p.SlowPeriod),
		})
	}
	ema := indicator.EMA(closes, s.p.Period).Values
	dir, trig, ok := zoneSignal(win, ema, s.p.ZonePercent, ZoneMode(s.p.Mode), s.p.Confirmation)
	if !ok {
		return types.Signal{}, false
	}
	return s.emit(win, off, candidate{
		dir:        dir,
		entry:      win[now].Close,
		eventTime:  win[trig].Time,
		confirm:    now,
		sweptLevel: ema[now],
		reason:     fmt.Sprintf("ema %d %s", s.p.Period, s.p.Mode),
	})
}
