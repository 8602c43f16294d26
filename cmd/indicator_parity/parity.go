package main

import (
	"math"

	"github.com/markcheno/go-talib"

	"chandelier-backtest/services/engine"
)

// Check pairs one engine indicator with its TA-Lib reference. Values before
// Start are warm-up on at least one side and are not compared.
type Check struct {
	Name      string
	Start     int
	Engine    []float64
	Reference []float64
}

type Outcome struct {
	Name       string
	Compared   int
	Mismatches int
	FirstBad   int
	MaxDiff    float64
}

func buildChecks(bars []engine.Bar, period, zlsmaPeriod int) []Check {
	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		high[i], low[i], closes[i] = b.High, b.Low, b.Close
	}
	calc := &engine.SeriesCalculator{}

	// ZLSMA reference: regression of the regression, aligned to the input.
	lr1 := talib.LinearReg(closes, zlsmaPeriod)
	zlRef := make([]float64, n)
	if first := zlsmaPeriod - 1; n > first {
		lr2 := talib.LinearReg(lr1[first:], zlsmaPeriod)
		for i := first; i < n; i++ {
			zlRef[i] = 2*lr1[i] - lr2[i-first]
		}
	}

	return []Check{
		{Name: "atr", Start: period, Engine: calc.CalculateATR(high, low, closes, period), Reference: talib.Atr(high, low, closes, period)},
		{Name: "highest_close", Start: period - 1, Engine: calc.RollingMax(closes, period), Reference: talib.Max(closes, period)},
		{Name: "lowest_close", Start: period - 1, Engine: calc.RollingMin(closes, period), Reference: talib.Min(closes, period)},
		{Name: "highest_high", Start: period - 1, Engine: calc.RollingMax(high, period), Reference: talib.Max(high, period)},
		{Name: "lowest_low", Start: period - 1, Engine: calc.RollingMin(low, period), Reference: talib.Min(low, period)},
		{Name: "linreg", Start: zlsmaPeriod - 1, Engine: calc.LinearRegression(closes, zlsmaPeriod), Reference: lr1},
		{Name: "zlsma", Start: 2*zlsmaPeriod - 2, Engine: calc.ZLSMA(closes, zlsmaPeriod), Reference: zlRef},
	}
}

// compare uses a relative tolerance scaled by the reference magnitude.
func compare(c Check, tolerance float64) Outcome {
	out := Outcome{Name: c.Name, FirstBad: -1}
	for i := c.Start; i < len(c.Engine) && i < len(c.Reference); i++ {
		e, r := c.Engine[i], c.Reference[i]
		out.Compared++
		diff := math.Abs(e - r)
		if math.IsNaN(e) {
			diff = math.Inf(1)
		}
		if diff > out.MaxDiff {
			out.MaxDiff = diff
		}
		if diff > tolerance*math.Max(1, math.Abs(r)) {
			out.Mismatches++
			if out.FirstBad < 0 {
				out.FirstBad = i
			}
		}
	}
	return out
}
