package engine

import "math"

// IndicatorConfig selects lookbacks for the Chandelier + ZLSMA indicator set.
type IndicatorConfig struct {
	Period      int
	ZLSMAPeriod int
	UseClose    bool // rolling extremes over closes instead of highs/lows
}

// Warmup returns the first bar index with a complete snapshot.
// ATR is defined from index Period, extremes from Period-1 and ZLSMA from
// 2*ZLSMAPeriod-2 because the second regression runs over the first.
func (c IndicatorConfig) Warmup() int {
	z := c.ZLSMAPeriod
	if z == 0 {
		z = c.Period
	}
	w := c.Period
	if 2*z-2 > w {
		w = 2*z - 2
	}
	return w
}

// IndicatorSnapshot holds indicator values as of one bar. Values are only
// meaningful when Ready is set.
type IndicatorSnapshot struct {
	Ready       bool    `json:"ready"`
	ATR         float64 `json:"atr"`
	RollingHigh float64 `json:"rolling_high"`
	RollingLow  float64 `json:"rolling_low"`
	ZLSMA       float64 `json:"zlsma"`
}

// ComputeIndicators returns one snapshot per bar. Snapshot t is a function of
// bars[0..t] only.
func ComputeIndicators(bars []Bar, cfg IndicatorConfig) []IndicatorSnapshot {
	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i, b := range bars {
		high[i], low[i], close[i] = b.High, b.Low, b.Close
	}

	z := cfg.ZLSMAPeriod
	if z == 0 {
		z = cfg.Period
	}

	calc := &SeriesCalculator{}
	atr := calc.CalculateATR(high, low, close, cfg.Period)
	upper, lower := high, low
	if cfg.UseClose {
		upper, lower = close, close
	}
	hh := calc.RollingMax(upper, cfg.Period)
	ll := calc.RollingMin(lower, cfg.Period)
	zl := calc.ZLSMA(close, z)

	warm := cfg.Warmup()
	snaps := make([]IndicatorSnapshot, n)
	for i := range snaps {
		s := IndicatorSnapshot{ATR: atr[i], RollingHigh: hh[i], RollingLow: ll[i], ZLSMA: zl[i]}
		s.Ready = i >= warm && !math.IsNaN(s.ATR) && !math.IsNaN(s.RollingHigh) &&
			!math.IsNaN(s.RollingLow) && !math.IsNaN(s.ZLSMA)
		snaps[i] = s
	}
	return snaps
}
