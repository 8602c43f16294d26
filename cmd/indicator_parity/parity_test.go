package main

import (
	"math/rand"
	"testing"
	"time"

	"chandelier-backtest/services/engine"
)

func randomBars(n int, seed int64) []engine.Bar {
	rng := rand.New(rand.NewSource(seed))
	day := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]engine.Bar, n)
	price := 12.0
	for i := range bars {
		open := price
		price *= 1 + rng.NormFloat64()*0.015
		hi, lo := open, price
		if lo > hi {
			hi, lo = lo, hi
		}
		bars[i] = engine.Bar{Date: day.AddDate(0, 0, i), Open: open, High: hi * (1 + rng.Float64()*0.01), Low: lo * (1 - rng.Float64()*0.01), Close: price}
	}
	return bars
}

func TestEngineMatchesTALib(t *testing.T) {
	bars := randomBars(300, 11)
	for _, tc := range []struct{ period, zlsma int }{{14, 14}, {10, 20}, {5, 3}} {
		for _, c := range buildChecks(bars, tc.period, tc.zlsma) {
			o := compare(c, 1e-6)
			if o.Compared == 0 {
				t.Fatalf("%s(%d/%d): nothing compared", c.Name, tc.period, tc.zlsma)
			}
			if o.Mismatches > 0 {
				t.Fatalf("%s(%d/%d): %d mismatches, first at %d, max diff %g", c.Name, tc.period, tc.zlsma, o.Mismatches, o.FirstBad, o.MaxDiff)
			}
		}
	}
}

func TestCompareCountsMismatchesAfterStart(t *testing.T) {
	c := Check{Name: "x", Start: 1, Engine: []float64{0, 1, 2}, Reference: []float64{0, 1, 2.5}}
	o := compare(c, 1e-9)
	if o.Compared != 2 || o.Mismatches != 1 || o.FirstBad != 2 {
		t.Fatalf("unexpected outcome %+v", o)
	}
}
