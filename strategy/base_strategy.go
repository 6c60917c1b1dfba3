package strategy

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/metrics"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/structure"
	"github.com/evdnx/gosmc/types"
)

// signalNamespace seeds the name-based signal ids.
var signalNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("signals.gosmc"))

// SignalID derives a stable id from the strategy, the side and the time of
// the event that triggered the signal.
func SignalID(strategyID string, d types.Direction, eventTime int64) string {
	return uuid.NewSHA1(signalNamespace, []byte(fmt.Sprintf("%s|%s|%d", strategyID, d, eventTime))).String()
}

// BaseStrategy bundles the common dependencies and helpers.
type BaseStrategy struct {
	id     string
	Common Common
	Bot    exit.BotConfig
	Sizer  risk.Sizer
	Log    logger.Logger
}

// NewBaseStrategy validates the shared configuration. All concrete
// strategies call this from their own constructors.
func NewBaseStrategy(id string, common Common, bot exit.BotConfig, sizer risk.Sizer, log logger.Logger) (*BaseStrategy, error) {
	if err := common.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if common.Name != "" {
		id = common.Name
	}
	return &BaseStrategy{id: id, Common: common, Bot: bot, Sizer: sizer, Log: logger.OrNop(log)}, nil
}

// ID implements Generator.
func (b *BaseStrategy) ID() string { return b.id }

// candidate is what a concrete generator detected before filtering.
type candidate struct {
	dir       types.Direction
	entry     float64
	eventTime int64
	// confirm is the window index at which the triggering event became
	// knowable; freshness is measured from it.
	confirm int
	// entryAge is how many bars before the last one the entry was priced.
	entryAge   int
	sweptLevel float64
	reason     string
}

// window trims bars to HistoryBars and reports the absolute index of the
// first bar kept. ok is false with fewer than MinBars bars.
func (b *BaseStrategy) window(bars []types.Bar) (win []types.Bar, off int, ok bool) {
	if len(bars) < b.Common.MinBars {
		return nil, 0, false
	}
	off = len(bars) - b.Common.HistoryBars
	if off < 0 {
		off = 0
	}
	return bars[off:], off, true
}

// fresh reports whether an event confirmed at window index confirm is
// still recent enough to act on at the last bar.
func (b *BaseStrategy) fresh(win []types.Bar, confirm int) bool {
	now := len(win) - 1
	return confirm <= now && now-confirm <= b.Common.MaxAgeBars
}

// trendAllows applies the EMA and structure bias filters.
func (b *BaseStrategy) trendAllows(win []types.Bar, d types.Direction) bool {
	want := types.TrendOf(d)
	emaOK := func() bool {
		ema, ok := indicator.EMAOf(win, b.Common.TrendEMAPeriod).Last()
		if !ok {
			return false
		}
		c := win[len(win)-1].Close
		return (want == types.Bullish && c > ema) || (want == types.Bearish && c < ema)
	}
	structOK := func() bool {
		return structure.Detect(win, b.Common.StructureLength).Trend == want
	}
	switch b.Common.Trend {
	case TrendEMA:
		return emaOK()
	case TrendStructure:
		return structOK()
	case TrendBoth:
		return emaOK() && structOK()
	}
	return true
}

// emit runs the shared filters on c, resolves the exit plan and builds the
// signal.
func (b *BaseStrategy) emit(win []types.Bar, off int, c candidate) (types.Signal, bool) {
	if !b.Common.Direction.Allows(c.dir) || !b.fresh(win, c.confirm) || !b.trendAllows(win, c.dir) {
		return types.Signal{}, false
	}
	if !b.oscillatorAllows(win, c.dir) {
		return types.Signal{}, false
	}
	now := len(win) - 1
	ctx := exit.Context{
		Entry:      c.entry,
		Direction:  c.dir,
		Bars:       win,
		Now:        now,
		SweptLevel: c.sweptLevel,
	}
	if atr, ok := indicator.ATR(win, 14).Last(); ok {
		ctx.ATR = atr
	}
	sl, err := exit.ResolveStop(b.Bot.SL, ctx)
	if err != nil {
		return b.reject(c, "stop", err)
	}
	ctx.RiskAmount = math.Abs(c.entry - sl)
	sig := types.Signal{
		ID:         SignalID(b.id, c.dir, c.eventTime),
		StrategyID: b.id,
		Direction:  c.dir,
		Time:       win[now].Time,
		Index:      off + now,
		EventTime:  c.eventTime,
		EntryIndex: off + now - c.entryAge,
		Entry:      c.entry,
		StopLoss:   sl,
		SweptLevel: c.sweptLevel,
		Reason:     c.reason,
	}
	sign := c.dir.Sign()
	for i, t := range b.Bot.Targets() {
		tp, err := exit.ResolveTarget(t.Config, ctx)
		if err != nil {
			return b.reject(c, fmt.Sprintf("tp%d", i+1), err)
		}
		if (tp-c.entry)*sign <= 0 {
			return b.reject(c, fmt.Sprintf("tp%d", i+1), fmt.Errorf("target %f not beyond entry %f", tp, c.entry))
		}
		sig.TP[i] = tp
		sig.TPKind[i] = t.Kind()
		if !math.IsInf(tp, 0) {
			sig.RiskReward[i] = math.Abs(tp-c.entry) / ctx.RiskAmount
		}
	}
	sig.Quantity = b.Sizer.Qty(c.entry, sl)
	b.Log.Debug("signal_emitted",
		logger.String("strategy", b.id),
		logger.String("id", sig.ID),
		logger.String("direction", c.dir.String()),
		logger.Float64("entry", sig.Entry),
		logger.Float64("stop", sig.StopLoss),
		logger.Float64("tp1", sig.TP[0]),
		logger.String("reason", c.reason),
	)
	metrics.SignalsEmitted.WithLabelValues(b.id).Inc()
	return sig, true
}

func (b *BaseStrategy) reject(c candidate, level string, err error) (types.Signal, bool) {
	b.Log.Debug("signal_rejected",
		logger.String("strategy", b.id),
		logger.String("level", level),
		logger.String("reason", c.reason),
		logger.Err(err),
	)
	metrics.SignalsRejected.WithLabelValues(b.id).Inc()
	return types.Signal{}, false
}

// volumeScore is bar i's volume relative to the mean of the `period` bars
// ending at i.
func volumeScore(bars []types.Bar, i, period int) float64 {
	from := i - period + 1
	if from < 0 {
		from = 0
	}
	var sum float64
	for j := from; j <= i; j++ {
		sum += bars[j].Volume
	}
	mean := sum / float64(i-from+1)
	if mean == 0 {
		return 0
	}
	return bars[i].Volume / mean
}
