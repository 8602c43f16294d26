package engine

import (
	"math/rand"
	"time"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func barsFromCloses(closes []float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func linearCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func randomWalk(n int, seed int64) []Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]Bar, n)
	price := 50.0
	for i := range bars {
		open := price
		price *= 1 + rng.NormFloat64()*0.02
		if price < 1 {
			price = 1
		}
		hi := maxf(open, price) * (1 + rng.Float64()*0.01)
		lo := minf(open, price) * (1 - rng.Float64()*0.01)
		bars[i] = Bar{Date: day0.AddDate(0, 0, i), Open: open, High: hi, Low: lo, Close: price, Volume: 1e5}
	}
	return bars
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func runSignals(bars []Bar, p Params) ([]EngineState, []Signal) {
	snaps := ComputeIndicators(bars, p.Indicators())
	states := make([]EngineState, len(bars))
	sigs := make([]Signal, len(bars))
	var st EngineState
	for i, b := range bars {
		st, sigs[i] = Step(st, StepInput{Close: b.Close, Snapshot: snaps[i]}, p.Mult)
		states[i] = st
	}
	return states, sigs
}
