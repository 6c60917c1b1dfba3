package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Account is the capital a backtest books against.
type Account struct {
	Size        float64 `json:"size"`        // e.g. 10000
	RiskPercent float64 `json:"riskPercent"` // e.g. 1 = 1 % of Size per trade
}

// Costs are charged per side on every (partial) exit.
type Costs struct {
	CommissionPercent float64 `json:"commissionPercent"` // default 0.1
	SlippagePercent   float64 `json:"slippagePercent"`   // default 0.05
}

// Backtest bounds the walk-forward runner.
type Backtest struct {
	WarmupBars int `json:"warmupBars"` // default 50
	MinBars    int `json:"minBars"`    // default 100
}

// Sweep controls the optimizer worker pool.
type Sweep struct {
	// Workers bounds the pool; 0 means runtime.NumCPU().
	Workers int `json:"workers"`
	// BatchSize is the number of combinations between yields when Workers is 1.
	BatchSize int `json:"batchSize"`
	// EstimateWindow is how many recent combination durations feed the ETA.
	EstimateWindow int    `json:"estimateWindow"`
	SortKey        string `json:"sortKey"` // profit, winrate, trades, avgrr
}

// Sizing holds the broker quantity constraints.
type Sizing struct {
	// QuantityPrecision defines the number of decimal places to round to
	// (e.g. 2 for crypto/futures, 0 for equities).
	QuantityPrecision int `json:"quantityPrecision"`

	// StepSize is the increment allowed by the exchange (e.g. 0.0001).
	// Zero disables step rounding.
	StepSize float64 `json:"stepSize"`

	// Minimum order size accepted by the broker (e.g. 0.001 BTC).
	MinQty float64 `json:"minQty"`
}

// Config holds the pipeline-wide settings.
type Config struct {
	Account  Account  `json:"account"`
	Costs    Costs    `json:"costs"`
	Backtest Backtest `json:"backtest"`
	Sweep    Sweep    `json:"sweep"`
	Sizing   Sizing   `json:"sizing"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Account:  Account{Size: 10_000, RiskPercent: 1},
		Costs:    Costs{CommissionPercent: 0.1, SlippagePercent: 0.05},
		Backtest: Backtest{WarmupBars: 50, MinBars: 100},
		Sweep:    Sweep{BatchSize: 10, EstimateWindow: 10, SortKey: "profit"},
		Sizing:   Sizing{QuantityPrecision: 4},
	}
}

// SortKeys lists the accepted Sweep.SortKey values.
var SortKeys = []string{"profit", "winrate", "trades", "avgrr"}

// Validate checks that all numeric fields are within sensible bounds and
// reports every violation, not just the first.
func (c *Config) Validate() error {
	var err error
	if c.Account.Size <= 0 {
		err = multierr.Append(err, fmt.Errorf("Account.Size (%f) must be positive", c.Account.Size))
	}
	if c.Account.RiskPercent <= 0 || c.Account.RiskPercent > 50 {
		err = multierr.Append(err, fmt.Errorf("Account.RiskPercent (%f) must be >0 and <=50", c.Account.RiskPercent))
	}
	if c.Costs.CommissionPercent < 0 || c.Costs.CommissionPercent > 5 {
		err = multierr.Append(err, fmt.Errorf("Costs.CommissionPercent (%f) out of realistic range", c.Costs.CommissionPercent))
	}
	if c.Costs.SlippagePercent < 0 || c.Costs.SlippagePercent > 5 {
		err = multierr.Append(err, fmt.Errorf("Costs.SlippagePercent (%f) out of realistic range", c.Costs.SlippagePercent))
	}
	if c.Backtest.WarmupBars < 0 {
		err = multierr.Append(err, errors.New("Backtest.WarmupBars cannot be negative"))
	}
	if c.Backtest.MinBars < 0 {
		err = multierr.Append(err, errors.New("Backtest.MinBars cannot be negative"))
	}
	if c.Sweep.Workers < 0 {
		err = multierr.Append(err, errors.New("Sweep.Workers cannot be negative"))
	}
	if c.Sweep.BatchSize <= 0 {
		err = multierr.Append(err, errors.New("Sweep.BatchSize must be positive"))
	}
	if c.Sweep.EstimateWindow <= 0 {
		err = multierr.Append(err, errors.New("Sweep.EstimateWindow must be positive"))
	}
	if !validSortKey(c.Sweep.SortKey) {
		err = multierr.Append(err, fmt.Errorf("Sweep.SortKey %q must be one of %v", c.Sweep.SortKey, SortKeys))
	}
	return multierr.Append(err, c.Sizing.Validate())
}

// Validate checks the quantity constraints on their own.
func (s Sizing) Validate() error {
	var err error
	if s.QuantityPrecision < 0 {
		err = multierr.Append(err, errors.New("Sizing.QuantityPrecision cannot be negative"))
	}
	if s.MinQty < 0 {
		err = multierr.Append(err, errors.New("Sizing.MinQty cannot be negative"))
	}
	if s.StepSize < 0 {
		err = multierr.Append(err, errors.New("Sizing.StepSize cannot be negative"))
	}
	return err
}

func validSortKey(k string) bool {
	for _, s := range SortKeys {
		if s == k {
			return true
		}
	}
	return false
}
