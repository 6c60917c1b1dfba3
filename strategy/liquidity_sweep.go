package strategy

import (
	"errors"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// LiquiditySweepParams tunes LiquiditySweep.
type LiquiditySweepParams struct {
	SwingLength int `json:"swingLength"`
	// MinVolumeScore requires the sweeping bar's volume relative to its
	// 20-bar mean; 0 disables the filter.
	MinVolumeScore float64 `json:"minVolumeScore"`
}

// LiquiditySweep fades the most recent wick-only break of a swing: a swept
// low is bought and a swept high is sold, at the sweeping bar's close.
type LiquiditySweep struct {
	*BaseStrategy
	p LiquiditySweepParams
}

// NewLiquiditySweep validates p and the shared configuration.
func NewLiquiditySweep(p LiquiditySweepParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*LiquiditySweep, error) {

	if p.SwingLength <= 0 {
		return nil, errors.New("liquidity sweep: SwingLength must be positive")
	}
	if p.MinVolumeScore < 0 {
		return nil, errors.New("liquidity sweep: MinVolumeScore cannot be negative")
	}
	base, err := NewBaseStrategy(string(KindLiquiditySweep), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &LiquiditySweep{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (l *LiquiditySweep) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := l.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	ev, ok := structure.Detect(win, l.p.SwingLength).LastBOS(true)
	if !ok {
		return types.Signal{}, false
	}
	if l.p.MinVolumeScore > 0 && volumeScore(win, ev.BreakIndex, 20) < l.p.MinVolumeScore {
		return types.Signal{}, false
	}
	dir := types.Short
	reason := "liquidity sweep of swing high"
	if ev.SweptLevel == types.SwingLow {
		dir = types.Long
		reason = "liquidity sweep of swing low"
	}
	return l.emit(win, off, candidate{
		dir:        dir,
		entry:      win[ev.BreakIndex].Close,
		eventTime:  ev.BreakTime,
		confirm:    ev.ConfirmIndex,
		entryAge:   len(win) - 1 - ev.BreakIndex,
		sweptLevel: ev.PivotPrice,
		reason:     reason,
	})
}
