package engine

import (
	"math"
	"testing"
)

func TestMaxDrawdownPercent(t *testing.T) {
	dd := MaxDrawdown([]float64{100, 120, 90, 110, 60, 130})
	if math.Abs(dd-50) > 1e-9 {
		t.Fatalf("drawdown %v, want 50", dd)
	}
}

func TestSharpeFlatCurveIsZero(t *testing.T) {
	if s := SharpeRatio([]float64{100, 100, 100, 100}, 0.02, 252); s != 0 {
		t.Fatalf("sharpe %v", s)
	}
}

func TestSharpeSign(t *testing.T) {
	up := []float64{100, 101, 103, 104, 106, 107}
	down := []float64{100, 99, 97, 96, 94, 93}
	if SharpeRatio(up, 0.02, 252) <= 0 {
		t.Fatal("rising curve should have positive sharpe")
	}
	if SharpeRatio(down, 0.02, 252) >= 0 {
		t.Fatal("falling curve should have negative sharpe")
	}
}

func TestComputeMetricsWithoutTrades(t *testing.T) {
	m := ComputeMetrics(1000, []float64{1000, 1000, 1000}, nil, 0.02, 252)
	if m.SharpeRatio != 0 || m.WinRate != 0 || m.TotalReturn != 0 || m.MaxDrawdown != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestWinRate(t *testing.T) {
	rate, wins := WinRate([]ClosedTrade{{NetPnL: 5}, {NetPnL: -1}, {NetPnL: 0}, {NetPnL: 2}})
	if wins != 2 || rate != 0.5 {
		t.Fatalf("rate %v wins %d", rate, wins)
	}
}
