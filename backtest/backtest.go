// Package backtest walks a generator forward over history, one open trade
// at a time, and aggregates the simulated results.
package backtest

import (
	"context"
	"fmt"

	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/ledger"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/metrics"
	"github.com/evdnx/gosmc/simulator"
	"github.com/evdnx/gosmc/strategy"
	"github.com/evdnx/gosmc/types"
)

// Stats aggregates the resolved trades of a run.
type Stats struct {
	Trades         int                   `json:"trades"`
	Wins           int                   `json:"wins"`
	Losses         int                   `json:"losses"`
	Breakevens     int                   `json:"breakevens"`
	WinRate        float64               `json:"winRate"` // percent
	AvgRR          float64               `json:"avgRR"`
	TotalRR        float64               `json:"totalRR"`
	GrossProfit    float64               `json:"grossProfit"`
	GrossLoss      float64               `json:"grossLoss"`
	NetPL          float64               `json:"netPL"`
	Fees           float64               `json:"fees"`
	ProfitFactor   float64               `json:"profitFactor"`
	ReturnPct      float64               `json:"returnPct"`
	MaxDrawdownPct float64               `json:"maxDrawdownPct"`
	Outcomes       map[types.Outcome]int `json:"outcomes"`
}

// Result is the outcome of one run. Unresolved holds the trade that was
// still open when the data ended; it is not part of Trades or Stats.
type Result struct {
	Trades     []types.TradeOutcome `json:"trades"`
	Stats      Stats                `json:"stats"`
	Unresolved *types.TradeOutcome  `json:"unresolved,omitempty"`
}

// Runner backtests one generator with its exit plan.
type Runner struct {
	gen  strategy.Generator
	bot  exit.BotConfig
	cfg  config.Config
	opts simulator.Options
	log  logger.Logger
}

// NewRunner validates the configuration. bot must be the plan gen was
// built with.
func NewRunner(gen strategy.Generator, bot exit.BotConfig, cfg config.Config, log logger.Logger) (*Runner, error) {
	if gen == nil {
		return nil, fmt.Errorf("backtest: nil generator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	return &Runner{gen: gen, bot: bot, cfg: cfg, opts: simulator.OptionsFrom(cfg.Costs), log: logger.OrNop(log)}, nil
}

// Run scans bars from the warmup offset. With fewer than MinBars bars the
// result is empty. A signal whose id was already traded is skipped, no
// signal is taken while a trade is open, and the scan stops at the first
// trade the data cannot resolve.
func (r *Runner) Run(ctx context.Context, bars []types.Bar) (Result, error) {
	res := Result{Stats: Stats{Outcomes: map[types.Outcome]int{}}}
	if len(bars) < r.cfg.Backtest.MinBars {
		return res, nil
	}
	if err := types.ValidateBars(bars); err != nil {
		return res, fmt.Errorf("backtest: %w", err)
	}
	book := ledger.NewPaperLedger(r.cfg.Account.Size)
	seen := make(map[string]struct{})
	i := r.cfg.Backtest.WarmupBars
	for i < len(bars)-1 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		sig, ok := r.gen.Generate(bars[:i+1])
		if !ok {
			i++
			continue
		}
		if _, dup := seen[sig.ID]; dup {
			i++
			continue
		}
		seen[sig.ID] = struct{}{}
		out := simulator.Simulate(bars, sig, r.bot, r.opts)
		if !out.Resolved {
			res.Unresolved = &out
			r.log.Debug("backtest_unresolved_trade",
				logger.String("strategy", r.gen.ID()),
				logger.String("signal", sig.ID),
				logger.Int("index", sig.Index),
			)
			break
		}
		if err := book.Book(out); err != nil {
			return Result{}, err
		}
		metrics.TradesClosed.WithLabelValues(string(out.Outcome)).Inc()
		res.Trades = append(res.Trades, out)
		// A new signal may form on the exit bar itself.
		i = out.ExitIndex
	}
	res.Stats = Summarize(res.Trades, book.Summary())
	r.log.Info("backtest_complete",
		logger.String("strategy", r.gen.ID()),
		logger.Int("trades", res.Stats.Trades),
		logger.Float64("net_pl", res.Stats.NetPL),
		logger.Float64("win_rate", res.Stats.WinRate),
	)
	return res, nil
}

// Summarize derives the trade counts and R statistics and takes the money
// figures from the ledger.
func Summarize(trades []types.TradeOutcome, acct ledger.Summary) Stats {
	s := Stats{
		Trades:         len(trades),
		GrossProfit:    acct.GrossProfit,
		GrossLoss:      acct.GrossLoss,
		NetPL:          acct.NetPL,
		Fees:           acct.Fees,
		ProfitFactor:   acct.ProfitFactor,
		ReturnPct:      acct.ReturnPct,
		MaxDrawdownPct: acct.MaxDrawdownPct,
		Outcomes:       map[types.Outcome]int{},
	}
	for _, t := range trades {
		s.Outcomes[t.Outcome]++
		s.TotalRR += t.RealizedRR
		switch {
		case t.IsWinner:
			s.Wins++
		case t.RealizedRR < 0:
			s.Losses++
		default:
			s.Breakevens++
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
		s.AvgRR = s.TotalRR / float64(s.Trades)
	}
	return s
}
