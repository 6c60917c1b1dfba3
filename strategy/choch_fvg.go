package strategy

import (
	"errors"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// CHoCHFVGParams tunes CHoCHFVG.
type CHoCHFVGParams struct {
	SwingLength    int                 `json:"swingLength"`
	FVG            structure.FVGConfig `json:"fvg"`
	MinVolumeScore float64             `json:"minVolumeScore"`
}

// CHoCHFVG waits for a change of character, then for the first pullback
// into a fair value gap left in the new direction, and enters at the gap
// boundary price trades into.
type CHoCHFVG struct {
	*BaseStrategy
	p CHoCHFVGParams
}

// NewCHoCHFVG validates p and the shared configuration.
func NewCHoCHFVG(p CHoCHFVGParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*CHoCHFVG, error) {

	if p.SwingLength <= 0 {
		return nil, errors.New("choch fvg: SwingLength must be positive")
	}
	if p.FVG.MinSizeATR < 0 || p.FVG.ATRPeriod <= 0 || p.FVG.VolumePeriod <= 0 {
		return nil, errors.New("choch fvg: FVG needs a non-negative MinSizeATR and positive periods")
	}
	if p.MinVolumeScore < 0 {
		return nil, errors.New("choch fvg: MinVolumeScore cannot be negative")
	}
	base, err := NewBaseStrategy(string(KindCHoCHFVG), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &CHoCHFVG{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *CHoCHFVG) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	ch, ok := structure.Detect(win, s.p.SwingLength).LastCHoCH()
	if !ok {
		return types.Signal{}, false
	}
	var gap *structure.FVG
	gaps := structure.DetectFVGs(win, s.p.FVG)
	for i := len(gaps) - 1; i >= 0 && gaps[i].Index >= ch.BreakIndex; i-- {
		g := gaps[i]
		if g.Direction == ch.Direction && g.VolumeScore >= s.p.MinVolumeScore {
			gap = &gaps[i]
			break
		}
	}
	now := len(win) - 1
	if gap == nil || gap.MitigatedIndex != now || now < 1 {
		return types.Signal{}, false
	}
	prev := win[now-1]
	dir := types.Long
	entry := gap.Top
	if gap.Direction == types.Bearish {
		dir = types.Short
		entry = gap.Bottom
		if prev.High >= gap.Bottom {
			return types.Signal{}, false
		}
	} else if prev.Low <= gap.Top {
		return types.Signal{}, false
	}
	return s.emit(win, off, candidate{
		dir:        dir,
		entry:      entry,
		eventTime:  gap.Time,
		confirm:    now,
		sweptLevel: ch.SwingPrice,
		reason:     "fvg retest after change of character",
	})
}
