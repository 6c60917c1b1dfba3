package strategy

import (
	"fmt"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/types"
)

// VWAPRejectionParams tunes VWAPRejection.
type VWAPRejectionParams struct {
	Anchor        indicator.Anchor `json:"anchor"`
	RollingPeriod int              `json:"rollingPeriod"`
	ZonePercent   float64          `json:"zonePercent"`
	Mode          ZoneMode         `json:"mode"`
	Confirmation  Confirmation     `json:"confirmation"`
}

// VWAPRejection trades rejections from (bounce) or breaks through (cross)
// a zone around a VWAP.
type VWAPRejection struct {
	*BaseStrategy
	p VWAPRejectionParams
}

// NewVWAPRejection validates p and the shared configuration.
func NewVWAPRejection(p VWAPRejectionParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*VWAPRejection, error) {

	if !p.Anchor.Valid() {
		return nil, fmt.Errorf("vwap rejection: unknown anchor %q", p.Anchor)
	}
	if p.Anchor == indicator.AnchorRolling && p.RollingPeriod <= 0 {
		return nil, fmt.Errorf("vwap rejection: RollingPeriod (%d) must be positive", p.RollingPeriod)
	}
	if err := validZone(p.Mode, p.Confirmation, p.ZonePercent); err != nil {
		return nil, fmt.Errorf("vwap rejection: %w", err)
	}
	base, err := NewBaseStrategy(string(KindVWAPRejection), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &VWAPRejection{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *VWAPRejection) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	vwap := indicator.VWAP(win, s.p.Anchor, s.p.RollingPeriod)
	dir, trig, ok := zoneSignal(win, vwap.Values, s.p.ZonePercent, s.p.Mode, s.p.Confirmation)
	if !ok {
		return types.Signal{}, false
	}
	now := len(win) - 1
	return s.emit(win, off, candidate{
		dir:        dir,
		entry:      win[now].Close,
		eventTime:  win[trig].Time,
		confirm:    now,
		sweptLevel: vwap.Values[now],
		reason:     fmt.Sprintf("%s vwap %s", s.p.Anchor, s.p.Mode),
	})
}
