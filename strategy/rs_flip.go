package strategy

import (
	"errors"
	"fmt"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// RSFlipParams tunes RSFlip.
type RSFlipParams struct {
	Trendline structure.TrendlineConfig `json:"trendline"`
	// BreakoutLookback bounds how far back the breakout close may be.
	BreakoutLookback int `json:"breakoutLookback"`
	// RetestLookback bounds how many bars may pass between the breakout and
	// the retest.
	RetestLookback int `json:"retestLookback"`
}

// RSFlip trades a resistance line that turned into support (or the
// reverse): a close through the line, then a retest of the line from the
// other side that holds.
type RSFlip struct {
	*BaseStrategy
	p RSFlipParams
}

// NewRSFlip validates p and the shared configuration.
func NewRSFlip(p RSFlipParams, common Common, bot exit.BotConfig,
	sizer risk.Sizer, log logger.Logger) (*RSFlip, error) {

	if p.Trendline.SwingLength <= 0 || p.Trendline.MinTouches < 2 {
		return nil, errors.New("rs flip: trendline needs a positive SwingLength and at least 2 touches")
	}
	if p.Trendline.TolerancePercent < 0 {
		return nil, errors.New("rs flip: TolerancePercent cannot be negative")
	}
	if p.BreakoutLookback <= 0 || p.RetestLookback <= 0 {
		return nil, fmt.Errorf("rs flip: lookbacks (%d, %d) must be positive", p.BreakoutLookback, p.RetestLookback)
	}
	base, err := NewBaseStrategy(string(KindRSFlip), common, bot, sizer, log)
	if err != nil {
		return nil, err
	}
	return &RSFlip{BaseStrategy: base, p: p}, nil
}

// Generate implements Generator.
func (s *RSFlip) Generate(bars []types.Bar) (types.Signal, bool) {
	win, off, ok := s.window(bars)
	if !ok {
		return types.Signal{}, false
	}
	now := len(win) - 1
	tol := s.p.Trendline.TolerancePercent / 100
	for _, l := range structure.DetectTrendlines(win, s.p.Trendline) {
		dir := types.Long
		if l.Kind == types.SwingLow {
			dir = types.Short
		}
		k, ok := s.breakout(win, l, dir, tol)
		if !ok {
			continue
		}
		lvl := l.PriceAt(now)
		b := win[now]
		if dir == types.Long && !(b.Low <= lvl*(1+tol) && b.Close > lvl) {
			continue
		}
		if dir == types.Short && !(b.High >= lvl*(1-tol) && b.Close < lvl) {
			continue
		}
		return s.emit(win, off, candidate{
			dir:        dir,
			entry:      b.Close,
			eventTime:  win[k].Time,
			confirm:    now,
			sweptLevel: lvl,
			reason:     fmt.Sprintf("%s line flipped", l.Kind),
		})
	}
	return types.Signal{}, false
}

// breakout finds the most recent close through l within the lookbacks,
// requiring every close since then to stay on the broken side.
func (s *RSFlip) breakout(win []types.Bar, l structure.Trendline, dir types.Direction, tol float64) (int, bool) {
	now := len(win) - 1
	sign := dir.Sign()
	beyond := func(i int) bool {
		edge := l.PriceAt(i) * (1 + sign*tol)
		return (win[i].Close-edge)*sign > 0
	}
	from := now - s.p.BreakoutLookback
	if from <= l.EndIndex {
		from = l.EndIndex + 1
	}
	if from < 1 {
		from = 1
	}
	for k := now - 1; k >= from; k-- {
		if !beyond(k) || beyond(k-1) {
			continue
		}
		if now-k > s.p.RetestLookback {
			return 0, false
		}
		for j := k + 1; j < now; j++ {
			if (win[j].Close-l.PriceAt(j))*sign <= 0 {
				return 0, false
			}
		}
		return k, true
	}
	return 0, false
}
