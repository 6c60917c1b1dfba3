package strategy

import (
	"errors"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// BOSContinuationParams tunes BOSContinuation.
type BOSContinuationParams struct {
	SwingLength     int     `json:"swingLength"`
	MinBreakPercent float64 `json:"minBreakPercent"`
}

// BOSContinuation trades in the direction of the most recent genuine break
// of structure while price still holds beyond the broken level.
type BOSContinuation struct {
	*BaseStrategy
	p BOSContinuationParams
}

// NewBOSContinuation validates p and the shared configuration.
func NewBOSContinuation(p BOSContinuationParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*BOSContinuation, error) {

	if p.SwingLength <= 0 {
		return nil, errors.New("bos continuation: SwingLength must be positive")
	}
	if p.MinBreakPercent < 0 {
		return nil, errors.New("bos continuation: MinBreakPercent cannot be negative")
	}
	base, err := NewBaseStrategy(string(KindBOSContinuation), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &BOSContinuation{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *BOSContinuation) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	var last *structure.Event
	events := structure.FilterMinBreak(structure.Detect(win, s.p.SwingLength).BOS, s.p.MinBreakPercent)
	for i := len(events) - 1; i >= 0; i-- {
		if !events[i].IsLiquiditySweep {
			last = &events[i]
			break
		}
	}
	if last == nil {
		return types.Signal{}, false
	}
	dir, _ := last.Direction.Direction()
	px := win[len(win)-1].Close
	if (px-last.SwingPrice)*dir.Sign() <= 0 {
		return types.Signal{}, false
	}
	return s.emit(win, off, candidate{
		dir:        dir,
		entry:      px,
		eventTime:  last.BreakTime,
		confirm:    last.ConfirmIndex,
		sweptLevel: last.SwingPrice,
		reason:     "break of structure continuation",
	})
}
