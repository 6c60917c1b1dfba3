package strategy

import (
	"fmt"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
)

// Settings carries the parameters of every generator kind, so a single
// value can describe any of them.
type Settings struct {
	LiquiditySweep  LiquiditySweepParams  `json:"liquiditySweep"`
	BOSContinuation BOSContinuationParams `json:"bosContinuation"`
	CHoCHFVG        CHoCHFVGParams        `json:"chochFvg"`
	VWAPRejection   VWAPRejectionParams   `json:"vwapRejection"`
	EMASignal       EMASignalParams       `json:"emaSignal"`
	RSFlip          RSFlipParams          `json:"rsFlip"`
	StructureBreak  StructureBreakParams  `json:"structureBreak"`
}

// DefaultSettings returns the stock parameters.
func DefaultSettings() Settings {
	return Settings{
		LiquiditySweep:  LiquiditySweepParams{SwingLength: 5},
		BOSContinuation: BOSContinuationParams{SwingLength: 5},
		CHoCHFVG:        CHoCHFVGParams{SwingLength: 5, FVG: structure.DefaultFVGConfig()},
		VWAPRejection: VWAPRejectionParams{
			Anchor:        indicator.AnchorDaily,
			RollingPeriod: 20,
			ZonePercent:   0.1,
			Mode:          ZoneBounce,
			Confirmation:  ConfirmSingle,
		},
		EMASignal: EMASignalParams{
			Mode:         EMABounce,
			Period:       21,
			FastPeriod:   9,
			SlowPeriod:   21,
			ZonePercent:  0.1,
			Confirmation: ConfirmSingle,
		},
		RSFlip:         RSFlipParams{Trendline: structure.DefaultTrendlineConfig(), BreakoutLookback: 10, RetestLookback: 5},
		StructureBreak: StructureBreakParams{SwingLength: 5, IncludeCHoCH: true},
	}
}

// SetSwingLength applies n to every structure-based generator.
func (s *Settings) SetSwingLength(n int) {
	s.LiquiditySweep.SwingLength = n
	s.BOSContinuation.SwingLength = n
	s.CHoCHFVG.SwingLength = n
	s.RSFlip.Trendline.SwingLength = n
	s.StructureBreak.SwingLength = n
}

// SwingLengthOf returns the swing length the given kind runs with. Kinds
// that do not detect swings report false.
func (s Settings) SwingLengthOf(kind Kind) (int, bool) {
	switch kind {
	case KindLiquiditySweep:
		return s.LiquiditySweep.SwingLength, true
	case KindBOSContinuation:
		return s.BOSContinuation.SwingLength, true
	case KindCHoCHFVG:
		return s.CHoCHFVG.SwingLength, true
	case KindRSFlip:
		return s.RSFlip.Trendline.SwingLength, true
	case KindStructureBreak:
		return s.StructureBreak.SwingLength, true
	}
	return 0, false
}

// SetEMAPeriod applies n to the EMA generator's single-EMA period.
func (s *Settings) SetEMAPeriod(n int) {
	s.EMASignal.Period = n
}

// New builds the generator of the given kind.
func New(kind Kind, s Settings, common Common, bot exit.BotConfig, sizer risk.Sizer, log logger.Logger) (Generator, error) {
	switch kind {
	case KindLiquiditySweep:
		return built[*LiquiditySweep](NewLiquiditySweep(s.LiquiditySweep, common, bot, sizer, log))
	case KindBOSContinuation:
		return built[*BOSContinuation](NewBOSContinuation(s.BOSContinuation, common, bot, sizer, log))
	case KindCHoCHFVG:
		return built[*CHoCHFVG](NewCHoCHFVG(s.CHoCHFVG, common, bot, sizer, log))
	case KindVWAPRejection:
		return built[*VWAPRejection](NewVWAPRejection(s.VWAPRejection, common, bot, sizer, log))
	case KindEMASignal:
		return built[*EMASignal](NewEMASignal(s.EMASignal, common, bot, sizer, log))
	case KindRSFlip:
		return built[*RSFlip](NewRSFlip(s.RSFlip, common, bot, sizer, log))
	case KindStructureBreak:
		return built[*StructureBreak](NewStructureBreak(s.StructureBreak, common, bot, sizer, log))
	}
	return nil, fmt.Errorf("unknown strategy kind %q", kind)
}

// built keeps a failed constructor from leaking a typed nil Generator.
func built[T Generator](g T, err error) (Generator, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
