package engine

import "math"

// Metrics summarises one backtest. Every field is finite.
type Metrics struct {
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"` // percent of peak value
	WinRate      float64 `json:"win_rate"`
	TotalReturn  float64 `json:"total_return"`
	TotalTrades  int     `json:"total_trades"`
	WinTrades    int     `json:"win_trades"`
	FinalValue   float64 `json:"final_value"`
	InitialValue float64 `json:"initial_value"`
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// SharpeRatio annualises the mean excess per-bar return over its population
// standard deviation. riskFree is an annual rate converted to a per-bar rate
// by compounding over factor bars. A flat value curve scores 0.
func SharpeRatio(values []float64, riskFree, factor float64) float64 {
	if len(values) < 3 || factor <= 0 {
		return 0
	}
	rf := math.Pow(1+riskFree, 1/factor) - 1
	excess := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		excess = append(excess, values[i]/values[i-1]-1-rf)
	}
	if len(excess) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range excess {
		mean += r
	}
	mean /= float64(len(excess))
	variance := 0.0
	for _, r := range excess {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(excess)))
	if std < 1e-12 {
		return 0
	}
	return finite(mean / std * math.Sqrt(factor))
}

// MaxDrawdown returns the deepest peak to trough fall in percent.
func MaxDrawdown(values []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return finite(worst)
}

// WinRate is the share of closed trades with positive net PnL.
func WinRate(trades []ClosedTrade) (rate float64, wins int) {
	for _, t := range trades {
		if t.NetPnL > 0 {
			wins++
		}
	}
	if len(trades) == 0 {
		return 0, 0
	}
	return float64(wins) / float64(len(trades)), wins
}

// ComputeMetrics derives the summary from the per-bar account values.
func ComputeMetrics(initial float64, values []float64, trades []ClosedTrade, riskFree, factor float64) Metrics {
	m := Metrics{InitialValue: initial, FinalValue: initial, TotalTrades: len(trades)}
	if len(values) > 0 {
		m.FinalValue = values[len(values)-1]
	}
	if initial > 0 {
		m.TotalReturn = finite(m.FinalValue/initial - 1)
	}
	series := append([]float64{initial}, values...)
	m.MaxDrawdown = MaxDrawdown(series)
	m.WinRate, m.WinTrades = WinRate(trades)
	if len(trades) > 0 {
		m.SharpeRatio = SharpeRatio(series, riskFree, factor)
	}
	return m
}
