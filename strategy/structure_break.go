package strategy

import (
	"errors"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// StructureBreakParams tunes StructureBreak.
type StructureBreakParams struct {
	SwingLength     int     `json:"swingLength"`
	IncludeCHoCH    bool    `json:"includeChoch"`
	MinBreakPercent float64 `json:"minBreakPercent"`
}

// StructureBreak enters on the most recent structural break, optionally
// counting changes of character too.
type StructureBreak struct {
	*BaseStrategy
	p StructureBreakParams
}

// NewStructureBreak validates p and the shared configuration.
func NewStructureBreak(p StructureBreakParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*StructureBreak, error) {

	if p.SwingLength <= 0 {
		return nil, errors.New("structure break: SwingLength must be positive")
	}
	if p.MinBreakPercent < 0 {
		return nil, errors.New("structure break: MinBreakPercent cannot be negative")
	}
	base, err := NewBaseStrategy(string(KindStructureBreak), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &StructureBreak{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *StructureBreak) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	var events []structure.Event
	for _, e := range structure.Detect(win, s.p.SwingLength).Events() {
		if e.IsLiquiditySweep || (e.Kind == structure.CHoCH && !s.p.IncludeCHoCH) {
			continue
		}
		events = append(events, e)
	}
	events = structure.FilterMinBreak(events, s.p.MinBreakPercent)
	if len(events) == 0 {
		return types.Signal{}, false
	}
	ev := events[len(events)-1]
	dir, _ := ev.Direction.Direction()
	return s.emit(win, off, candidate{
		dir:        dir,
		entry:      win[len(win)-1].Close,
		eventTime:  ev.BreakTime,
		confirm:    ev.ConfirmIndex,
		sweptLevel: ev.SwingPrice,
		reason:     string(ev.Kind) + " structure break",
	})
}
