package engine

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWarmupIndex(t *testing.T) {
	cases := []struct {
		cfg  IndicatorConfig
		want int
	}{
		{IndicatorConfig{Period: 14}, 26},
		{IndicatorConfig{Period: 10, ZLSMAPeriod: 3}, 10},
		{IndicatorConfig{Period: 2}, 2},
	}
	for _, c := range cases {
		if got := c.cfg.Warmup(); got != c.want {
			t.Fatalf("warmup(%+v) = %d, want %d", c.cfg, got, c.want)
		}
		bars := barsFromCloses(linearCloses(60, 10, 1))
		snaps := ComputeIndicators(bars, c.cfg)
		for i, s := range snaps {
			if s.Ready != (i >= c.want) {
				t.Fatalf("cfg %+v: snapshot %d ready=%v", c.cfg, i, s.Ready)
			}
		}
	}
}

func TestATRSeededWithMean(t *testing.T) {
	calc := &SeriesCalculator{}
	high := []float64{11, 12, 13, 14, 15}
	low := []float64{9, 10, 11, 12, 13}
	close := []float64{10, 11, 12, 13, 14}
	atr := calc.CalculateATR(high, low, close, 3)
	if !math.IsNaN(atr[2]) {
		t.Fatalf("atr[2] should be undefined, got %v", atr[2])
	}
	// every true range is 2
	if !approx(atr[3], 2) || !approx(atr[4], 2) {
		t.Fatalf("unexpected atr %v", atr)
	}
}

func TestLinearRegressionOnLineIsExact(t *testing.T) {
	calc := &SeriesCalculator{}
	vals := linearCloses(20, 5, 0.75)
	lr := calc.LinearRegression(vals, 6)
	zl := calc.ZLSMA(vals, 6)
	for i := range vals {
		if i < 5 {
			if !math.IsNaN(lr[i]) {
				t.Fatalf("lr[%d] defined too early", i)
			}
			continue
		}
		if !approx(lr[i], vals[i]) {
			t.Fatalf("lr[%d]=%v want %v", i, lr[i], vals[i])
		}
		if i >= 10 && !approx(zl[i], vals[i]) {
			t.Fatalf("zlsma[%d]=%v want %v", i, zl[i], vals[i])
		}
	}
}

func TestLinearRegressionKnownWindow(t *testing.T) {
	calc := &SeriesCalculator{}
	// y = 1, 2, 4 at x = -2, -1, 0: slope 1.5, fitted value at 0 is 7/3 + 1.5 = 3.8333
	lr := calc.LinearRegression([]float64{1, 2, 4}, 3)
	if !approx(lr[2], 7.0/3.0+1.5) {
		t.Fatalf("got %v", lr[2])
	}
}

func TestRollingExtremesUseCloseSwitch(t *testing.T) {
	bars := barsFromCloses([]float64{10, 12, 11, 9, 13})
	withClose := ComputeIndicators(bars, IndicatorConfig{Period: 3, ZLSMAPeriod: 2, UseClose: true})
	withHL := ComputeIndicators(bars, IndicatorConfig{Period: 3, ZLSMAPeriod: 2, UseClose: false})
	if withClose[4].RollingHigh != 13 || withClose[4].RollingLow != 9 {
		t.Fatalf("close extremes: %+v", withClose[4])
	}
	if withHL[4].RollingHigh != 13.5 || withHL[4].RollingLow != 8.5 {
		t.Fatalf("high/low extremes: %+v", withHL[4])
	}
}

func TestIndicatorsAreCausal(t *testing.T) {
	bars := randomWalk(120, 7)
	cfg := IndicatorConfig{Period: 12, UseClose: true}
	full := ComputeIndicators(bars, cfg)
	for _, cut := range []int{30, 55, 90} {
		prefix := ComputeIndicators(bars[:cut], cfg)
		for i := range prefix {
			a, b := prefix[i], full[i]
			if a.Ready != b.Ready {
				t.Fatalf("cut %d index %d readiness differs", cut, i)
			}
			if a.Ready && (!approx(a.ATR, b.ATR) || !approx(a.ZLSMA, b.ZLSMA) ||
				a.RollingHigh != b.RollingHigh || a.RollingLow != b.RollingLow) {
				t.Fatalf("cut %d index %d: prefix %+v full %+v", cut, i, a, b)
			}
		}
	}
}
