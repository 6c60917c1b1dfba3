package strategy

import (
	"github.com/evdnx/goti"

	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/types"
)

// newSuite builds a goti suite with the gate's thresholds.
func (g OscillatorGate) newSuite() (*goti.IndicatorSuite, error) {
	ic := goti.DefaultConfig()
	ic.RSIOverbought = g.RSIOverbought
	ic.RSIOversold = g.RSIOversold
	ic.MFIOverbought = g.MFIOverbought
	ic.MFIOversold = g.MFIOversold
	return goti.NewIndicatorSuiteWithConfig(ic)
}

// oscillatorAllows vetoes longs into overbought and shorts into oversold
// RSI/MFI readings. A suite that is not warmed up does not veto.
func (b *BaseStrategy) oscillatorAllows(win []types.Bar, d types.Direction) bool {
	g := b.Common.Oscillator
	if !g.Enabled {
		return true
	}
	suite, err := g.newSuite()
	if err != nil {
		b.Log.Warn("suite_create_error", logger.String("strategy", b.id), logger.Err(err))
		return true
	}
	from := len(win) - g.Bars
	if from < 0 {
		from = 0
	}
	for _, bar := range win[from:] {
		if err := suite.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			b.Log.Warn("suite_add_error", logger.String("strategy", b.id), logger.Err(err))
			return true
		}
	}
	if rsi, err := suite.GetRSI().Calculate(); err == nil {
		if d == types.Long && rsi >= g.RSIOverbought {
			return false
		}
		if d == types.Short && rsi <= g.RSIOversold {
			return false
		}
	}
	if mfi, err := suite.GetMFI().Calculate(); err == nil {
		if d == types.Long && mfi >= g.MFIOverbought {
			return false
		}
		if d == types.Short && mfi <= g.MFIOversold {
			return false
		}
	}
	return true
}
