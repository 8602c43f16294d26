package engine

import "math"

// Vector kernels over float slices. Every output has the input's length and
// holds NaN until the kernel's lookback is satisfied. Output index i only
// depends on inputs 0..i.

type SeriesCalculator struct{}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func (c *SeriesCalculator) CalculateSMA(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period < 1 || len(values) < period {
		return result
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += values[i-j]
		}
		result[i] = sum / float64(period)
	}
	return result
}

// CalculateTrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// Index 0 has no previous close and stays NaN.
func (c *SeriesCalculator) CalculateTrueRange(high, low, close []float64) []float64 {
	result := nanSlice(len(close))
	for i := 1; i < len(close); i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		result[i] = math.Max(hl, math.Max(hc, lc))
	}
	return result
}

// CalculateATR applies Wilder smoothing to the true range, seeded with the
// simple mean of the first period ranges. The first value lands on index period.
func (c *SeriesCalculator) CalculateATR(high, low, close []float64, period int) []float64 {
	tr := c.CalculateTrueRange(high, low, close)
	result := nanSlice(len(close))
	if period < 1 || len(close) <= period {
		return result
	}

	// tr[0] is undefined, so the seed averages tr[1..period].
	atr := c.CalculateSMA(tr[1:], period)[period-1]
	result[period] = atr

	for i := period + 1; i < len(close); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		result[i] = atr
	}
	return result
}

func (c *SeriesCalculator) RollingMax(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Max)
}

func (c *SeriesCalculator) RollingMin(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Min)
}

func rollingExtreme(values []float64, period int, pick func(a, b float64) float64) []float64 {
	result := nanSlice(len(values))
	if period < 1 {
		return result
	}
	for i := period - 1; i < len(values); i++ {
		v := values[i]
		for j := 1; j < period; j++ {
			v = pick(v, values[i-j])
		}
		result[i] = v
	}
	return result
}

// LinearRegression fits an ordinary least squares line through the trailing
// period values and returns the fitted value at the newest point. NaN inputs
// inside a window leave that output NaN.
func (c *SeriesCalculator) LinearRegression(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period < 1 {
		return result
	}
	n := float64(period)
	// x runs from -(period-1) to 0 so the intercept is the value at the newest bar.
	meanX := -(n - 1) / 2
	sxx := n * (n*n - 1) / 12

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		sumY := 0.0
		valid := true
		for _, y := range window {
			if math.IsNaN(y) {
				valid = false
				break
			}
			sumY += y
		}
		if !valid {
			continue
		}
		meanY := sumY / n
		if period == 1 {
			result[i] = meanY
			continue
		}
		sxy := 0.0
		for k, y := range window {
			x := float64(k) - (n - 1)
			sxy += (x - meanX) * (y - meanY)
		}
		slope := sxy / sxx
		result[i] = meanY - slope*meanX
	}
	return result
}

// ZLSMA is the zero-lag least squares moving average:
// lr + (lr - linreg(lr)).
func (c *SeriesCalculator) ZLSMA(values []float64, period int) []float64 {
	lr1 := c.LinearRegression(values, period)
	lr2 := c.LinearRegression(lr1, period)
	result := nanSlice(len(values))
	for i := range values {
		if math.IsNaN(lr1[i]) || math.IsNaN(lr2[i]) {
			continue
		}
		result[i] = lr1[i] + (lr1[i] - lr2[i])
	}
	return result
}
