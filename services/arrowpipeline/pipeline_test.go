package arrowpipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/results"
)

func TestSeriesRoundTripAcrossBatches(t *testing.T) {
	p := NewPipeline(Config{BatchSize: 3}, zaptest.NewLogger(t))
	amount := 1234.5
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	series := engine.PriceSeries{Symbol: "600036"}
	for i := 0; i < 7; i++ {
		b := engine.Bar{Date: day.AddDate(0, 0, i), Open: 30 + float64(i), High: 31 + float64(i), Low: 29 + float64(i), Close: 30.5 + float64(i), Volume: 1e4}
		if i%2 == 0 {
			b.Amount = &amount
		}
		series.Bars = append(series.Bars, b)
	}

	data, err := p.ConvertSeriesToArrow(series)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.ConvertSeriesFromArrow(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Symbol != series.Symbol || got.Len() != 7 {
		t.Fatalf("unexpected series %s with %d bars", got.Symbol, got.Len())
	}
	for i, b := range got.Bars {
		want := series.Bars[i]
		if !b.Date.Equal(want.Date) || b.Close != want.Close || b.High != want.High {
			t.Fatalf("bar %d: got %+v want %+v", i, b, want)
		}
		if (b.Amount == nil) != (want.Amount == nil) || b.PctChange != nil {
			t.Fatalf("bar %d: optional columns not preserved", i)
		}
	}
}

func TestEmptySeriesIsNoData(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	if _, err := p.ConvertSeriesToArrow(engine.PriceSeries{Symbol: "x"}); !errors.Is(err, engine.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRecordsFileSortedRoundTrip(t *testing.T) {
	p := NewPipeline(Config{}, zaptest.NewLogger(t))
	recs := []results.OptimizationRecord{
		{Symbol: "600519", Period: 15, Mult: 2.2, InvestmentFraction: 0.9, MaxPyramiding: 3, SharpeRatio: 1.1, LastSignal: -3, Trials: 50, StudyID: "s2"},
		{Symbol: "000858", Period: 10, Mult: 1.6, InvestmentFraction: 0.5, SharpeRatio: 0.3, LastSignal: 1, Trials: 50, FailedTrials: 2, StudyID: "s1"},
	}
	path := filepath.Join(t.TempDir(), "results.arrow")
	if err := p.WriteRecordsFile(path, recs); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.ConvertRecordsFromArrow(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != recs[1] || got[1] != recs[0] {
		t.Fatalf("unexpected records %+v", got)
	}
}
