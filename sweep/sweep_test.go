package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/evdnx/gosmc/backtest"
	"github.com/evdnx/gosmc/cache"
	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/strategy"
	"github.com/evdnx/gosmc/testutils"
	"github.com/evdnx/gosmc/types"
)

func zigzagBars() []types.Bar {
	return testutils.FromCloses(0.3, 100, testutils.Zigzag(100, 110, 8, 15, 1.5)...)
}

func emaBase() Base {
	s := strategy.DefaultSettings()
	s.SetSwingLength(3)
	s.EMASignal.Mode = strategy.EMATrend
	return Base{
		Kind:     strategy.KindEMASignal,
		Settings: s,
		Common:   strategy.DefaultCommon(),
		Bot: exit.BotConfig{
			NumTPs: 2,
			TP1:    &exit.Target{Config: exit.FixedRR{Ratio: 1}, PositionPercent: 50},
			TP2:    &exit.Target{Config: exit.ATR{Multiplier: 3, Period: 14}, PositionPercent: 50},
			SL:     exit.ATR{Multiplier: 1.5, Period: 14},
		},
	}
}

// twelve is 2 trend filters x 3 directions x 2 reward ratios.
func twelve() Space {
	return Space{
		Trend: TrendFilters{Enabled: true, Values: []strategy.TrendFilter{strategy.TrendOff, strategy.TrendEMA}},
		Direction: Directions{Enabled: true, Values: []strategy.DirectionFilter{
			strategy.DirectionBoth, strategy.DirectionBull, strategy.DirectionBear,
		}},
		RRRatio: FloatRange{Enabled: true, Min: 1, Max: 2, Step: 1},
	}
}

func withWorkers(n int) config.Config {
	cfg := config.Default()
	cfg.Sweep.Workers = n
	return cfg
}

func newOptimizer(t *testing.T, space Space, cfg config.Config, opts ...Option) *Optimizer {
	t.Helper()
	o, err := NewOptimizer(emaBase(), space, cfg, nil, opts...)
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	return o
}

func TestExpandOrder(t *testing.T) {
	base := emaBase()
	combos := twelve().Expand(base.Defaults())
	if len(combos) != 12 {
		t.Fatalf("expected 12 combinations, got %d", len(combos))
	}
	first, second, last := combos[0], combos[1], combos[11]
	if first.Trend != strategy.TrendOff || first.Direction != strategy.DirectionBoth || first.RRRatio != 1 {
		t.Fatalf("unexpected first combination %s", first)
	}
	if second.RRRatio != 2 || second.Direction != strategy.DirectionBoth {
		t.Fatalf("the last dimension must vary fastest, got %s", second)
	}
	if last.Trend != strategy.TrendEMA || last.Direction != strategy.DirectionBear || last.RRRatio != 2 {
		t.Fatalf("unexpected last combination %s", last)
	}
	for _, p := range combos {
		if p.SwingLength != exit.DefaultSwingLength || p.StopKind != types.ExitATR || p.ATRMultiplier != 1.5 || p.EMAPeriod != 21 {
			t.Fatalf("disabled dimensions must keep the base value, got %s", p)
		}
	}
}

func TestFloatRangeValues(t *testing.T) {
	vs := FloatRange{Enabled: true, Min: 0.1, Max: 0.3, Step: 0.1}.Values()
	if len(vs) != 3 || math.Abs(vs[2]-0.3) > 1e-12 {
		t.Fatalf("expected three values ending at 0.3, got %v", vs)
	}
	is := IntRange{Enabled: true, Min: 3, Max: 9, Step: 3}.Values()
	if !reflect.DeepEqual(is, []int{3, 6, 9}) {
		t.Fatalf("got %v", is)
	}
}

func TestSpaceValidate(t *testing.T) {
	s := Space{
		SwingLength: IntRange{Enabled: true, Min: 5, Max: 3, Step: 1},
		StopKind:    StopKinds{Enabled: true, Values: []types.ExitKind{types.ExitFixedRR}},
		RRRatio:     FloatRange{Enabled: true, Min: 1, Max: 2},
		// Disabled dimensions are not checked.
		EMAPeriod: IntRange{Min: 9, Max: 1},
	}
	err := s.Validate()
	if n := len(multierr.Errors(err)); n != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", n, err)
	}
	if !strings.Contains(err.Error(), "fixed_rr") {
		t.Fatalf("error should name the bad stop kind: %v", err)
	}
	if err := twelve().Validate(); err != nil {
		t.Fatalf("valid space rejected: %v", err)
	}
}

func TestApplyMapsParams(t *testing.T) {
	base := emaBase()
	p := base.Defaults()
	p.RRRatio, p.EMAPeriod, p.SwingLength = 3, 34, 4
	p.StopKind = types.ExitStructure
	sp := Space{
		StopKind:    StopKinds{Enabled: true, Values: []types.ExitKind{types.ExitStructure}},
		SwingLength: IntRange{Enabled: true, Min: 4, Max: 4, Step: 1},
		EMAPeriod:   IntRange{Enabled: true, Min: 34, Max: 34, Step: 1},
		RRRatio:     FloatRange{Enabled: true, Min: 3, Max: 3, Step: 1},
	}

	s, c, bot, err := p.Apply(base, sp)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.EMASignal.Period != 34 || c.TrendEMAPeriod != base.Common.TrendEMAPeriod {
		t.Fatalf("EMA period must drive the EMA generator, got %d / %d", s.EMASignal.Period, c.TrendEMAPeriod)
	}
	if s.LiquiditySweep.SwingLength != 4 || s.RSFlip.Trendline.SwingLength != 4 {
		t.Fatalf("swing length not applied")
	}
	if rr := bot.TP1.Config.(exit.FixedRR); rr.Ratio != 3 {
		t.Fatalf("ratio %f", rr.Ratio)
	}
	if sl, ok := bot.SL.(exit.Structure); !ok || sl.SwingLength != 4 {
		t.Fatalf("expected a structure stop with swing 4, got %#v", bot.SL)
	}
	if base.Bot.TP1.Config.(exit.FixedRR).Ratio != 1 {
		t.Fatalf("Apply must not mutate the base targets")
	}

	// Any other kind retunes the trend EMA instead.
	base.Kind = strategy.KindLiquiditySweep
	_, c, _, _ = p.Apply(base, sp)
	if c.TrendEMAPeriod != 34 {
		t.Fatalf("trend EMA period %d", c.TrendEMAPeriod)
	}
}

func TestDisabledDimensionsKeepBaseSettings(t *testing.T) {
	s := strategy.DefaultSettings()
	s.LiquiditySweep.SwingLength = 3
	base := Base{
		Kind:     strategy.KindLiquiditySweep,
		Settings: s,
		Common:   strategy.DefaultCommon(),
		Bot: exit.BotConfig{
			NumTPs: 1,
			TP1:    &exit.Target{Config: exit.FixedRR{Ratio: 2}, PositionPercent: 100},
			SL:     exit.Structure{SwingLength: 7, BufferPercent: 0.1},
		},
	}
	combos := Space{}.Expand(base.Defaults())
	if len(combos) != 1 || combos[0].SwingLength != 3 {
		t.Fatalf("the swing length must come from the base kind, got %v", combos)
	}
	got, c, bot, err := combos[0].Apply(base, Space{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got, base.Settings) || !reflect.DeepEqual(c, base.Common) {
		t.Fatalf("an empty space changed the settings:\n%+v\nvs\n%+v", got, base.Settings)
	}
	if sl, ok := bot.SL.(exit.Structure); !ok || sl.SwingLength != 7 {
		t.Fatalf("an empty space changed the stop, got %#v", bot.SL)
	}

	// A kind without swings falls back to the structure stop's length.
	base.Kind = strategy.KindVWAPRejection
	if p := base.Defaults(); p.SwingLength != 7 {
		t.Fatalf("expected the stop's swing length, got %d", p.SwingLength)
	}
}

// TestTrendSwingStopGrid sweeps 2 trend filters x 3 swing lengths x 2 stop
// kinds on a liquidity sweep base.
func TestTrendSwingStopGrid(t *testing.T) {
	s := strategy.DefaultSettings()
	s.SetSwingLength(3)
	base := Base{
		Kind:     strategy.KindLiquiditySweep,
		Settings: s,
		Common:   strategy.DefaultCommon(),
		Bot: exit.BotConfig{
			NumTPs: 1,
			TP1:    &exit.Target{Config: exit.FixedRR{Ratio: 2}, PositionPercent: 100},
			SL:     exit.Structure{SwingLength: 3, BufferPercent: 0.1},
		},
	}
	space := Space{
		Trend:       TrendFilters{Enabled: true, Values: []strategy.TrendFilter{strategy.TrendOff, strategy.TrendEMA}},
		SwingLength: IntRange{Enabled: true, Min: 2, Max: 4, Step: 1},
		StopKind:    StopKinds{Enabled: true, Values: []types.ExitKind{types.ExitStructure, types.ExitATR}},
	}
	o, err := NewOptimizer(base, space, withWorkers(3), nil)
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	var mu sync.Mutex
	applied := map[string]exit.Config{}
	o.runFn = func(_ context.Context, p Params, _ []types.Bar) (backtest.Stats, error) {
		s, c, bot, err := p.Apply(base, space)
		if err != nil {
			return backtest.Stats{}, err
		}
		if s.LiquiditySweep.SwingLength != p.SwingLength || c.Trend != p.Trend {
			return backtest.Stats{}, fmt.Errorf("%s applied as swing %d trend %s", p, s.LiquiditySweep.SwingLength, c.Trend)
		}
		mu.Lock()
		applied[p.String()] = bot.SL
		mu.Unlock()
		return backtest.Stats{Trades: 1, NetPL: float64(p.SwingLength)}, nil
	}
	res, err := o.Run(context.Background(), zigzagBars())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res) != 12 {
		t.Fatalf("expected 12 combinations, got %d", len(res))
	}
	for _, r := range res {
		if r.Failed {
			t.Fatalf("combination %d failed: %s", r.Index, r.Err)
		}
		sl := applied[r.Params.String()]
		switch r.Params.StopKind {
		case types.ExitStructure:
			if st, ok := sl.(exit.Structure); !ok || st.SwingLength != r.Params.SwingLength || st.BufferPercent != 0.1 {
				t.Fatalf("%s: stop %#v", r.Params, sl)
			}
		case types.ExitATR:
			if a, ok := sl.(exit.ATR); !ok || a.Multiplier != 1.5 {
				t.Fatalf("%s: stop %#v", r.Params, sl)
			}
		default:
			t.Fatalf("unexpected stop kind %s", r.Params.StopKind)
		}
	}
	if res[0].Params.SwingLength != 4 || res[11].Params.SwingLength != 2 {
		t.Fatalf("results not ranked by profit: %s first, %s last", res[0].Params, res[11].Params)
	}
}

func TestResultsIndependentOfWorkers(t *testing.T) {
	bars := zigzagBars()
	var want []Result
	for _, n := range []int{1, 2, 4} {
		o := newOptimizer(t, twelve(), withWorkers(n))
		got, err := o.Run(context.Background(), bars)
		if err != nil {
			t.Fatalf("workers=%d: %v", n, err)
		}
		if len(got) != 12 {
			t.Fatalf("workers=%d: %d results", n, len(got))
		}
		if want == nil {
			want = got
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("workers=%d changed the results:\n%+v\nvs\n%+v", n, got, want)
		}
	}

	traded := false
	for i, r := range want {
		if r.Failed {
			t.Fatalf("combination %d failed: %s", r.Index, r.Err)
		}
		if r.Stats.Trades > 0 {
			traded = true
		}
		if i > 0 && r.Stats.NetPL > want[i-1].Stats.NetPL {
			t.Fatalf("results not ranked by profit at %d", i)
		}
		if i > 0 && r.Stats.NetPL == want[i-1].Stats.NetPL && r.Index < want[i-1].Index {
			t.Fatalf("ties must keep combination order at %d", i)
		}
	}
	if !traded {
		t.Fatalf("expected at least one combination to trade")
	}
}

func TestPanickingCombinationIsIsolated(t *testing.T) {
	log := testutils.NewMockLogger()
	o, err := NewOptimizer(emaBase(), twelve(), withWorkers(3), log)
	if err != nil {
		t.Fatal(err)
	}
	o.runFn = func(_ context.Context, p Params, _ []types.Bar) (backtest.Stats, error) {
		switch p.Direction {
		case strategy.DirectionBear:
			panic("boom")
		case strategy.DirectionBull:
			if p.RRRatio == 2 {
				return backtest.Stats{}, errors.New("bad combination")
			}
		}
		return backtest.Stats{Trades: 1, NetPL: p.RRRatio}, nil
	}
	res, err := o.Run(context.Background(), zigzagBars())
	if err != nil {
		t.Fatalf("a panic must not fail the sweep: %v", err)
	}
	failed := 0
	for _, r := range res {
		if !r.Failed {
			if failed > 0 {
				t.Fatalf("failed results must rank last")
			}
			continue
		}
		failed++
		if r.Stats.Trades != 0 || r.Err == "" {
			t.Fatalf("failed result must be empty with a reason, got %+v", r)
		}
	}
	if failed != 6 {
		t.Fatalf("expected 6 failed combinations, got %d", failed)
	}
	if log.Count("sweep_combination_failed") != 6 {
		t.Fatalf("expected a warning per failure, got %d", log.Count("sweep_combination_failed"))
	}
	if res[0].Stats.NetPL != 2 || res[0].Index != 1 {
		t.Fatalf("best result should be combination 1, got %+v", res[0])
	}
}

func TestCancelMarksRunStale(t *testing.T) {
	o := newOptimizer(t, twelve(), withWorkers(1))
	var calls atomic.Int32
	o.runFn = func(context.Context, Params, []types.Bar) (backtest.Stats, error) {
		if calls.Add(1) == 2 {
			o.Cancel()
		}
		return backtest.Stats{}, nil
	}
	res, err := o.Run(context.Background(), zigzagBars())
	if !errors.Is(err, ErrStale) || res != nil {
		t.Fatalf("expected ErrStale, got %v (%d results)", err, len(res))
	}
	if calls.Load() != 2 {
		t.Fatalf("a stale run must stop at the next combination, ran %d", calls.Load())
	}

	// The next Run starts a fresh generation.
	if _, err := o.Run(context.Background(), zigzagBars()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	o := newOptimizer(t, twelve(), withWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Run(ctx, zigzagBars()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProgressAndCache(t *testing.T) {
	var reports []Progress
	mem := cache.NewMemory()
	o := newOptimizer(t, twelve(), withWorkers(1),
		WithCache(mem),
		WithProgress(func(p Progress) { reports = append(reports, p) }),
	)
	var calls atomic.Int32
	o.runFn = func(_ context.Context, p Params, _ []types.Bar) (backtest.Stats, error) {
		calls.Add(1)
		return backtest.Stats{Trades: 2, NetPL: p.RRRatio, Outcomes: map[types.Outcome]int{types.OutcomeTP1: 2}}, nil
	}
	bars := zigzagBars()
	first, err := o.Run(context.Background(), bars)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 12 || reports[11].Completed != 12 || reports[11].Total != 12 || reports[11].Estimate != 0 {
		t.Fatalf("unexpected progress %+v", reports)
	}
	for i, p := range reports {
		if p.Completed != i+1 {
			t.Fatalf("progress out of order: %+v", reports)
		}
	}
	if mem.Len() != 12 {
		t.Fatalf("expected 12 cached entries, got %d", mem.Len())
	}

	second, err := o.Run(context.Background(), bars)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 12 {
		t.Fatalf("second run must be served from the cache, backtested %d times", calls.Load())
	}
	for i := range second {
		if !second[i].Cached || !reflect.DeepEqual(second[i].Stats, first[i].Stats) {
			t.Fatalf("cached result %d differs: %+v vs %+v", i, second[i], first[i])
		}
	}

	// Different bars miss the cache.
	if _, err := o.Run(context.Background(), testutils.Shift(bars, 60)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 24 {
		t.Fatalf("expected a fresh backtest per combination, got %d calls", calls.Load())
	}
}

func TestNewOptimizerRejectsBadInput(t *testing.T) {
	bad := twelve()
	bad.RRRatio.Step = 0
	if _, err := NewOptimizer(emaBase(), bad, config.Default(), nil); err == nil {
		t.Fatalf("expected a space error")
	}
	cfg := config.Default()
	cfg.Sweep.SortKey = "sharpe"
	if _, err := NewOptimizer(emaBase(), twelve(), cfg, nil); err == nil {
		t.Fatalf("expected a config error")
	}
	base := emaBase()
	base.Settings.EMASignal.FastPeriod = 0
	if _, err := NewOptimizer(base, twelve(), config.Default(), nil); err == nil {
		t.Fatalf("expected the base strategy to be rejected")
	}
}

func TestDurationBuffer(t *testing.T) {
	b := newDurationBuffer(3)
	if b.Estimate(5, 2) != 0 || b.Last() != 0 {
		t.Fatalf("empty buffer must estimate zero")
	}
	for _, d := range []time.Duration{10, 20, 30, 40} {
		b.Add(d * time.Millisecond)
	}
	if b.Len() != 3 || b.Last() != 40*time.Millisecond {
		t.Fatalf("window not trimmed: len=%d last=%s", b.Len(), b.Last())
	}
	if b.Mean() != 30*time.Millisecond {
		t.Fatalf("mean %s", b.Mean())
	}
	// 5 remaining over 2 workers is 3 rounds.
	if got := b.Estimate(5, 2); got != 90*time.Millisecond {
		t.Fatalf("estimate %s", got)
	}
}
