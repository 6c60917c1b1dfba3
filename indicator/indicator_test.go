package indicator_test

import (
	"math"
	"testing"

	"github.com/evdnx/gosmc/indicator"
	"github.com/evdnx/gosmc/testutils"
	"github.com/evdnx/gosmc/types"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMAValues(t *testing.T) {
	s := indicator.SMA([]float64{1, 2, 3, 4, 5}, 3)
	if s.Offset != 2 || s.Len() != 3 {
		t.Fatalf("unexpected shape offset=%d len=%d", s.Offset, s.Len())
	}
	for i, want := range []float64{2, 3, 4} {
		if v, ok := s.At(i + 2); !ok || !near(v, want) {
			t.Fatalf("sma at %d got %v expected %v", i+2, v, want)
		}
	}
	if _, ok := s.At(1); ok {
		t.Fatalf("sma should be undefined during warmup")
	}
	if !indicator.SMA([]float64{1, 2}, 3).Empty() {
		t.Fatalf("expected empty series for short input")
	}
}

func TestEMASeedsWithFirstSample(t *testing.T) {
	s := indicator.EMA([]float64{10, 20, 20}, 3)
	if s.Offset != 0 || s.Len() != 3 {
		t.Fatalf("ema should cover every input")
	}
	want := []float64{10, 15, 17.5}
	for i, w := range want {
		if !near(s.Values[i], w) {
			t.Fatalf("ema[%d] got %v expected %v", i, s.Values[i], w)
		}
	}
}

func TestRSIWilder(t *testing.T) {
	s := indicator.RSI([]float64{1, 2, 1, 2, 1}, 2)
	want := []float64{50, 75, 37.5}
	if s.Offset != 2 || s.Len() != len(want) {
		t.Fatalf("unexpected shape offset=%d len=%d", s.Offset, s.Len())
	}
	for i, w := range want {
		if !near(s.Values[i], w) {
			t.Fatalf("rsi[%d] got %v expected %v", i, s.Values[i], w)
		}
	}
}

func TestRSIWithoutLossesIs100(t *testing.T) {
	s := indicator.RSI(testutils.Ramp(100, 1, 30), 14)
	for i, v := range s.Values {
		if v != 100 {
			t.Fatalf("rsi[%d] got %v expected 100", i, v)
		}
	}
}

func TestATR(t *testing.T) {
	bars := testutils.OHLCV(
		[5]float64{9, 10, 8, 9, 1},
		[5]float64{9, 11, 9, 10, 1},
		[5]float64{10, 14, 10, 13, 1},
	)
	s := indicator.ATR(bars, 2)
	if s.Offset != 1 || s.Len() != 2 {
		t.Fatalf("unexpected shape offset=%d len=%d", s.Offset, s.Len())
	}
	if !near(s.Values[0], 2) || !near(s.Values[1], 3) {
		t.Fatalf("atr got %v expected [2 3]", s.Values)
	}
}

func TestMACDAlignment(t *testing.T) {
	m := indicator.MACD(testutils.Ramp(1, 1, 30), 12, 26, 9)
	if m.MACD.Offset != 25 || m.MACD.Len() != 5 || m.Signal.Len() != 5 || m.Histogram.Len() != 5 {
		t.Fatalf("unexpected macd shape %+v", m.MACD)
	}
	last, _ := m.MACD.Last()
	if last <= 0 {
		t.Fatalf("rising input should give a positive macd, got %v", last)
	}
}

func TestOBV(t *testing.T) {
	bars := testutils.FromCloses(0.5, 10, 100, 101, 100, 100)
	s := indicator.OBV(bars)
	want := []float64{0, 10, 0, 0}
	for i, w := range want {
		if s.Values[i] != w {
			t.Fatalf("obv[%d] got %v expected %v", i, s.Values[i], w)
		}
	}
}

func TestMFIWithoutNegativeFlowIs100(t *testing.T) {
	bars := testutils.FromCloses(0.5, 5, testutils.Ramp(50, 1, 20)...)
	s := indicator.MFI(bars, 14)
	if s.Offset != 14 || s.Empty() {
		t.Fatalf("unexpected shape offset=%d len=%d", s.Offset, s.Len())
	}
	for _, v := range s.Values {
		if v != 100 {
			t.Fatalf("mfi got %v expected 100", v)
		}
	}
}

func TestBollingerFlat(t *testing.T) {
	b := indicator.Bollinger([]float64{5, 5, 5, 5}, 3, 2)
	for i := range b.Middle.Values {
		if b.Upper.Values[i] != 5 || b.Lower.Values[i] != 5 {
			t.Fatalf("flat input should collapse the bands")
		}
	}
}

func TestVWAPDailyReset(t *testing.T) {
	bars := []types.Bar{
		{Time: testutils.Start, Open: 10, High: 10, Low: 10, Close: 10, Volume: 1},
		{Time: testutils.Start + 60, Open: 20, High: 20, Low: 20, Close: 20, Volume: 3},
		{Time: testutils.Start + 86400, Open: 30, High: 30, Low: 30, Close: 30, Volume: 2},
	}
	s := indicator.VWAP(bars, indicator.AnchorDaily, 0)
	want := []float64{10, 17.5, 30}
	for i, w := range want {
		if !near(s.Values[i], w) {
			t.Fatalf("vwap[%d] got %v expected %v", i, s.Values[i], w)
		}
	}
	session := indicator.VWAP(bars, indicator.AnchorSession, 0)
	if last, _ := session.Last(); !near(last, (10+60+60)/6.0) {
		t.Fatalf("session vwap got %v", last)
	}
}

func TestRollingVWAPZeroVolume(t *testing.T) {
	bars := []types.Bar{
		{Time: 1, Open: 10, High: 10, Low: 10, Close: 10},
		{Time: 2, Open: 20, High: 20, Low: 20, Close: 20},
		{Time: 3, Open: 30, High: 30, Low: 30, Close: 30},
	}
	s := indicator.VWAP(bars, indicator.AnchorRolling, 2)
	want := []float64{10, 15, 25}
	for i, w := range want {
		if !near(s.Values[i], w) {
			t.Fatalf("rolling vwap[%d] got %v expected %v", i, s.Values[i], w)
		}
	}
}

func TestAnchoredVWAP(t *testing.T) {
	bars := testutils.FromCloses(0, 1, 10, 20, 30)
	s := indicator.AnchoredVWAP(bars, 1)
	if s.Offset != 1 || s.Len() != 2 {
		t.Fatalf("unexpected shape offset=%d len=%d", s.Offset, s.Len())
	}
	if _, ok := s.At(0); ok {
		t.Fatalf("anchored vwap must not cover bars before the anchor")
	}
}

func TestNeutralValuesOnFlatInput(t *testing.T) {
	bars := testutils.FromCloses(0, 1, 50, 50, 50, 50, 50, 50)
	if v, _ := indicator.WilliamsR(bars, 3).Last(); v != -50 {
		t.Fatalf("williams %%r got %v expected -50", v)
	}
	if v, _ := indicator.CCI(bars, 3).Last(); v != 0 {
		t.Fatalf("cci got %v expected 0", v)
	}
	st := indicator.StochRSI(testutils.Ramp(1, 1, 40), 14, 14, 3, 3)
	if k, ok := st.K.Last(); !ok || k != 50 {
		t.Fatalf("stoch rsi k got %v expected 50", k)
	}
	if d, ok := st.D.Last(); !ok || d != 50 {
		t.Fatalf("stoch rsi d got %v expected 50", d)
	}
}

func TestADXTrending(t *testing.T) {
	bars := testutils.FromCloses(0.5, 1, testutils.Ramp(100, 1, 40)...)
	r := indicator.ADX(bars, 14)
	if r.ADX.Offset != 27 || r.PlusDI.Offset != 14 {
		t.Fatalf("unexpected offsets adx=%d di=%d", r.ADX.Offset, r.PlusDI.Offset)
	}
	if v, _ := r.ADX.Last(); !near(v, 100) {
		t.Fatalf("adx got %v expected 100", v)
	}
	if v, _ := r.MinusDI.Last(); v != 0 {
		t.Fatalf("-di got %v expected 0", v)
	}
}

func TestVolumeProfile(t *testing.T) {
	bars := testutils.OHLCV(
		[5]float64{100, 101, 99, 100, 10},
		[5]float64{100, 110, 100, 105, 1},
		[5]float64{100, 101, 99, 100, 10},
	)
	p := indicator.VolumeProfile(bars, 12)
	if p.POC != 100 {
		t.Fatalf("poc got %v expected 100", p.POC)
	}
	if p.VAL > p.POC || p.VAH < p.POC {
		t.Fatalf("value area [%v, %v] must contain poc", p.VAL, p.VAH)
	}
	if len(p.Levels) != 11 {
		t.Fatalf("expected 11 levels got %d", len(p.Levels))
	}
}

func TestBestEMALengthDeterministic(t *testing.T) {
	bars := testutils.FromCloses(0.4, 1, testutils.Zigzag(100, 110, 6, 8, 2)...)
	a, ok := indicator.BestEMALength(bars, 5, 30, 1)
	if !ok {
		t.Fatalf("expected a fit")
	}
	if a.Length < 5 || a.Length > 30 {
		t.Fatalf("length %d out of range", a.Length)
	}
	b, _ := indicator.BestEMALength(bars, 5, 30, 1)
	if a != b {
		t.Fatalf("best ema length not deterministic: %+v vs %+v", a, b)
	}
}
