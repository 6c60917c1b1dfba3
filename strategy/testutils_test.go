package strategy

import (
	"testing"

	"github.com/evdnx/gosmc/config"
	"github.com/evdnx/gosmc/exit"
	"github.com/evdnx/gosmc/logger"
	"github.com/evdnx/gosmc/risk"
	"github.com/evdnx/gosmc/testutils"
	"github.com/evdnx/gosmc/types"
)

// hlc builds bars from [high, low, close] rows; open equals close.
func hlc(rows ...[3]float64) []types.Bar {
	ohlcv := make([][5]float64, len(rows))
	for i, r := range rows {
		ohlcv[i] = [5]float64{r[2], r[0], r[1], r[2], 10}
	}
	return testutils.OHLCV(ohlcv...)
}

// sweepFixture has a single wick-only break of the swing high at bar 4,
// confirmed on bar 5.
func sweepFixture() []types.Bar {
	return hlc(
		[3]float64{101, 98, 100},
		[3]float64{105, 99, 104},
		[3]float64{104, 95, 96},
		[3]float64{103, 97, 102},
		[3]float64{106, 100, 103},
		[3]float64{104, 96, 97},
		[3]float64{102, 97, 99},
	)
}

// smallCommon lets the tiny fixtures through the history checks.
func smallCommon() Common {
	c := DefaultCommon()
	c.MinBars = 3
	return c
}

// rrBot is a single FixedRR target with a fixed-distance stop.
func rrBot(ratio, stopPct float64) exit.BotConfig {
	return exit.BotConfig{
		NumTPs: 1,
		TP1:    &exit.Target{Config: exit.FixedRR{Ratio: ratio}, PositionPercent: 100},
		SL:     exit.FixedDistance{Percent: stopPct},
	}
}

func defaultSizer() risk.Sizer {
	cfg := config.Default()
	return risk.NewSizer(cfg.Account, cfg.Sizing)
}

// buildGenerator calls the factory and fails the test on a construction error.
func buildGenerator(t *testing.T, kind Kind, s Settings, common Common, bot exit.BotConfig, log logger.Logger) Generator {
	t.Helper()
	g, err := New(kind, s, common, bot, defaultSizer(), log)
	if err != nil {
		t.Fatalf("New(%s) failed: %v", kind, err)
	}
	return g
}

// checkStopSide asserts SL < entry < TP for longs and the mirror for shorts.
func checkStopSide(t *testing.T, s types.Signal) {
	t.Helper()
	sign := s.Direction.Sign()
	if (s.Entry-s.StopLoss)*sign <= 0 {
		t.Fatalf("%s %s: stop %f on the wrong side of entry %f", s.StrategyID, s.Direction, s.StopLoss, s.Entry)
	}
	for i, tp := range s.TP {
		if s.TPKind[i] == "" {
			continue
		}
		if (tp-s.Entry)*sign <= 0 {
			t.Fatalf("%s %s: TP%d %f not beyond entry %f", s.StrategyID, s.Direction, i+1, tp, s.Entry)
		}
	}
}
