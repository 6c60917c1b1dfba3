package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evdnx/gosmc/backtest"
	"github.com/evdnx/gosmc/cache"
	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/metrics"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/strategy"
	"github.com/evdnx/gosmc/types"
)

// ErrStale is returned by a Run that was cancelled or superseded by a
// newer Run on the same Optimizer. Its results are discarded.
var ErrStale = errors.New("sweep: run superseded")

// Result is the backtest of one combination.
type Result struct {
	Index       int            `json:"index"`
	Params      Params         `json:"params"`
	Stats       backtest.Stats `json:"stats"`
	Description string         `json:"description"`
	Failed      bool           `json:"failed,omitempty"`
	Err         string         `json:"error,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
}

// Progress is reported after every finished combination.
type Progress struct {
	Completed int
	Total     int
	// Estimate is the projected time left, from the moving average of the
	// most recent combination durations.
	Estimate time.Duration
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithCache reuses stored results for identical bars and parameters.
func WithCache(c cache.Cache) Option {
	return func(o *Optimizer) { o.cache = c }
}

// WithProgress registers a callback. It may be called from several
// goroutines, one call at a time.
func WithProgress(fn func(Progress)) Option {
	return func(o *Optimizer) { o.onProgress = fn }
}

// Optimizer runs a Space against one base strategy.
type Optimizer struct {
	base  Base
	space Space
	cfg   config.Config
	log   logger.Logger

	cache      cache.Cache
	onProgress func(Progress)

	generation atomic.Uint64
	// runFn backtests one combination; tests replace it.
	runFn func(ctx context.Context, p Params, bars []types.Bar) (backtest.Stats, error)
}

// NewOptimizer validates the base strategy, the space and the config.
func NewOptimizer(base Base, space Space, cfg config.Config, log logger.Logger, opts ...Option) (*Optimizer, error) {
	if err := space.Validate(); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	o := &Optimizer{base: base, space: space, cfg: cfg, log: logger.OrNop(log)}
	if _, err := strategy.New(base.Kind, base.Settings, base.Common, base.Bot, o.sizer(), nil); err != nil {
		return nil, fmt.Errorf("sweep: base strategy: %w", err)
	}
	o.runFn = o.backtest
	for _, fn := range opts {
		fn(o)
	}
	return o, nil
}

// Combinations lists every parameter set Run will test, in index order.
func (o *Optimizer) Combinations() []Params {
	return o.space.Expand(o.base.Defaults())
}

// Cancel makes the Run in flight return ErrStale at its next check.
func (o *Optimizer) Cancel() {
	o.generation.Add(1)
}

func (o *Optimizer) workers() int {
	if o.cfg.Sweep.Workers > 0 {
		return o.cfg.Sweep.Workers
	}
	return runtime.NumCPU()
}

func (o *Optimizer) sizer() risk.Sizer {
	return risk.NewSizer(o.cfg.Account, o.cfg.Sizing)
}

// Run backtests every combination and returns the results ranked by the
// configured sort key, ties broken by combination index. A failing or
// panicking combination yields a zero-trade Failed result instead of an
// error.
func (o *Optimizer) Run(ctx context.Context, bars []types.Bar) ([]Result, error) {
	gen := o.generation.Add(1)
	stale := func() bool { return o.generation.Load() != gen }

	combos := o.Combinations()
	results := make([]Result, len(combos))
	workers := o.workers()
	durations := newDurationBuffer(o.cfg.Sweep.EstimateWindow)
	var mu sync.Mutex
	completed := 0
	fingerprint := datasetKey(bars)
	start := time.Now()

	o.log.Info("sweep_started",
		logger.String("strategy", string(o.base.Kind)),
		logger.Int("combinations", len(combos)),
		logger.Int("workers", workers),
	)

	runOne := func(ctx context.Context, idx int) error {
		if stale() {
			return ErrStale
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		t0 := time.Now()
		res := o.combination(ctx, idx, combos[idx], bars, fingerprint)
		took := time.Since(t0)
		results[idx] = res

		status := "completed"
		if res.Failed {
			status = "failed"
		}
		metrics.SweepCombinations.WithLabelValues(status).Inc()
		metrics.SweepDuration.Observe(took.Seconds())

		mu.Lock()
		defer mu.Unlock()
		completed++
		durations.Add(took)
		if o.onProgress != nil {
			o.onProgress(Progress{
				Completed: completed,
				Total:     len(combos),
				Estimate:  durations.Estimate(len(combos)-completed, workers),
			})
		}
		return nil
	}

	var err error
	if workers == 1 {
		err = o.runSequential(ctx, len(combos), runOne)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for idx := range combos {
			if stale() || gctx.Err() != nil {
				break
			}
			g.Go(func() error { return runOne(gctx, idx) })
		}
		err = g.Wait()
	}
	if stale() {
		metrics.SweepCombinations.WithLabelValues("discarded").Add(float64(len(combos)))
		o.log.Info("sweep_discarded", logger.String("strategy", string(o.base.Kind)))
		return nil, ErrStale
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	rank(results, o.cfg.Sweep.SortKey)
	o.log.Info("sweep_complete",
		logger.String("strategy", string(o.base.Kind)),
		logger.Int("combinations", len(combos)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// runSequential runs combinations in batches and yields between them so a
// single-threaded caller stays responsive.
func (o *Optimizer) runSequential(ctx context.Context, n int, runOne func(context.Context, int) error) error {
	batch := o.cfg.Sweep.BatchSize
	if batch <= 0 {
		batch = 10
	}
	for idx := 0; idx < n; idx++ {
		if err := runOne(ctx, idx); err != nil {
			return err
		}
		if (idx+1)%batch == 0 {
			runtime.Gosched()
		}
	}
	return nil
}

// combination runs one parameter set, consulting the cache first.
func (o *Optimizer) combination(ctx context.Context, idx int, p Params, bars []types.Bar, fingerprint string) (res Result) {
	res = Result{Index: idx, Params: p, Description: p.String()}
	key := ""
	if o.cache != nil {
		key = o.cacheKey(fingerprint, p)
		if b, ok, err := o.cache.Get(ctx, key); err != nil {
			o.log.Warn("sweep_cache_error", logger.String("key", key), logger.Err(err))
		} else if ok && json.Unmarshal(b, &res.Stats) == nil {
			res.Cached = true
			return res
		}
	}
	defer func() {
		if r := recover(); r != nil {
			res.Stats = backtest.Stats{Outcomes: map[types.Outcome]int{}}
			res.Failed = true
			res.Err = fmt.Sprint(r)
			o.log.Warn("sweep_combination_failed",
				logger.Int("index", idx),
				logger.String("params", res.Description),
				logger.String("panic", res.Err),
			)
		}
	}()
	stats, err := o.runFn(ctx, p, bars)
	if err != nil {
		res.Stats = backtest.Stats{Outcomes: map[types.Outcome]int{}}
		res.Failed = true
		res.Err = err.Error()
		o.log.Warn("sweep_combination_failed",
			logger.Int("index", idx),
			logger.String("params", res.Description),
			logger.Err(err),
		)
		return res
	}
	res.Stats = stats
	if o.cache != nil {
		if b, err := json.Marshal(stats); err == nil {
			if err := o.cache.Set(ctx, key, b); err != nil {
				o.log.Warn("sweep_cache_error", logger.String("key", key), logger.Err(err))
			}
		}
	}
	return res
}

func (o *Optimizer) backtest(ctx context.Context, p Params, bars []types.Bar) (backtest.Stats, error) {
	s, c, bot, err := p.Apply(o.base, o.space)
	if err != nil {
		return backtest.Stats{}, err
	}
	gen, err := strategy.New(o.base.Kind, s, c, bot, o.sizer(), nil)
	if err != nil {
		return backtest.Stats{}, err
	}
	r, err := backtest.NewRunner(gen, bot, o.cfg, nil)
	if err != nil {
		return backtest.Stats{}, err
	}
	res, err := r.Run(ctx, bars)
	return res.Stats, err
}

// cacheKey identifies a combination by dataset, strategy, parameters and
// the settings that change results.
func (o *Optimizer) cacheKey(fingerprint string, p Params) string {
	b, _ := json.Marshal(struct {
		Base   Base
		Bot    exit.BotSpec
		Params Params
		Costs  config.Costs
		Test   config.Backtest
		Acct   config.Account
	}{o.base, exit.BotSpecOf(o.base.Bot), p, o.cfg.Costs, o.cfg.Backtest, o.cfg.Account})
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(fingerprint+"|"), b...)).String()
}

// datasetKey is a cheap fingerprint of a bar series.
func datasetKey(bars []types.Bar) string {
	if len(bars) == 0 {
		return "empty"
	}
	first, last := bars[0], bars[len(bars)-1]
	return fmt.Sprintf("%d:%d:%d:%g:%g", len(bars), first.Time, last.Time, first.Close, last.Close)
}

// rank orders results best first by key.
func rank(results []Result, key string) {
	metric := func(r Result) float64 {
		switch key {
		case "winrate":
			return r.Stats.WinRate
		case "trades":
			return float64(r.Stats.Trades)
		case "avgrr":
			return r.Stats.AvgRR
		}
		return r.Stats.NetPL
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Failed != b.Failed {
			return !a.Failed
		}
		if ma, mb := metric(a), metric(b); ma != mb {
			return ma > mb
		}
		return a.Index < b.Index
	})
}
