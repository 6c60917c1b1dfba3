package main

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/strategy"
	"github.com/evdnx/gosmc/sweep"
)

// File is the JSON run configuration. Omitted sections keep their
// defaults.
type File struct {
	Config   config.Config     `json:"config"`
	Strategy strategy.Kind     `json:"strategy"`
	Settings strategy.Settings `json:"settings"`
	Common   strategy.Common   `json:"common"`
	Bot      exit.BotSpec      `json:"bot"`
	Space    sweep.Space       `json:"space"`
	// Signals lists the generators the signals mode runs; empty means all.
	Signals []strategy.Kind `json:"signals,omitempty"`
}

// defaultFile backtests the liquidity sweep with a 2R target and a
// structure stop.
func defaultFile() File {
	return File{
		Config:   config.Default(),
		Strategy: strategy.KindLiquiditySweep,
		Settings: strategy.DefaultSettings(),
		Common:   strategy.DefaultCommon(),
		Bot:      exit.BotSpecOf(exit.DefaultBotConfig()),
	}
}

// loadFile overlays path, if set, on the defaults.
func loadFile(path string) (File, error) {
	f := defaultFile()
	if path == "" {
		return f, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// validate reports every problem in the file at once.
func (f File) validate() (exit.BotConfig, error) {
	err := f.Config.Validate()
	bot, berr := f.Bot.Decode()
	err = multierr.Append(err, berr)
	err = multierr.Append(err, f.Common.Validate())
	if !known(f.Strategy) {
		err = multierr.Append(err, fmt.Errorf("unknown strategy %q", f.Strategy))
	}
	for _, k := range f.Signals {
		if !known(k) {
			err = multierr.Append(err, fmt.Errorf("signals: unknown strategy %q", k))
		}
	}
	return bot, err
}

func known(k strategy.Kind) bool {
	for _, x := range strategy.Kinds() {
		if x == k {
			return true
		}
	}
	return false
}

func (f File) base(bot exit.BotConfig) sweep.Base {
	return sweep.Base{Kind: f.Strategy, Settings: f.Settings, Common: f.Common, Bot: bot}
}
