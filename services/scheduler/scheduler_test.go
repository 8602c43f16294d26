package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/optimizer"
)

type fakeSource struct {
	series map[string]engine.PriceSeries
}

func (f *fakeSource) Fetch(_ context.Context, symbol string, _, _ time.Time) (engine.PriceSeries, error) {
	switch symbol {
	case "boom":
		panic("corrupt cache")
	case "down":
		return engine.PriceSeries{Symbol: symbol}, errors.New("connection refused")
	}
	if s, ok := f.series[symbol]; ok {
		return s, nil
	}
	return engine.PriceSeries{Symbol: symbol}, nil
}

func (f *fakeSource) Symbols(context.Context) ([]string, error) { return nil, nil }

func walk(symbol string, n int, seed int64) engine.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]engine.Bar, n)
	price := 15.0
	for i := range bars {
		open := price
		price *= 1 + rng.NormFloat64()*0.02
		hi, lo := open, price
		if lo > hi {
			hi, lo = lo, hi
		}
		bars[i] = engine.Bar{Date: day.AddDate(0, 0, i), Open: open, High: hi * 1.01, Low: lo * 0.99, Close: price, Volume: 2e5}
	}
	return engine.PriceSeries{Symbol: symbol, Bars: bars}
}

func newScheduler(t *testing.T, src *fakeSource, workers int) *Scheduler {
	t.Helper()
	cfg := optimizer.DefaultConfig()
	cfg.Trials = 12
	opt, err := optimizer.New(cfg, engine.NewEvaluator(engine.DefaultBacktestConfig(), nil), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return New(src, opt, workers, zaptest.NewLogger(t))
}

func TestRunIsolatesFailures(t *testing.T) {
	src := &fakeSource{series: map[string]engine.PriceSeries{
		"600000": walk("600000", 200, 1),
		"000001": walk("000001", 200, 2),
		"300750": walk("300750", 200, 3),
	}}
	s := newScheduler(t, src, 3)

	report, err := s.Run(context.Background(), Job{Symbols: []string{"600000", "boom", "empty", "000001", "down", "300750"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d (%+v)", len(report.Results), report.Failures)
	}
	want := []string{"000001", "300750", "600000"}
	for i, r := range report.Results {
		if r.Symbol != want[i] || r.Record.Symbol != want[i] {
			t.Fatalf("result %d is %s, want %s", i, r.Symbol, want[i])
		}
		if r.Record.Trials != 12 || r.Checksum == "" {
			t.Fatalf("incomplete result %+v", r.Record)
		}
	}
	if len(report.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %+v", report.Failures)
	}
	if report.Failures[0].Symbol != "boom" || report.Failures[1].Symbol != "down" || report.Failures[2].Symbol != "empty" {
		t.Fatalf("unexpected failures %+v", report.Failures)
	}
	if len(s.Monitor().Results()) != 3 {
		t.Fatal("timings not recorded for successful symbols")
	}
}

func TestRunMatchesSequentialResults(t *testing.T) {
	src := &fakeSource{series: map[string]engine.PriceSeries{
		"a": walk("a", 180, 5),
		"b": walk("b", 180, 6),
		"c": walk("c", 180, 7),
	}}
	job := Job{Symbols: []string{"c", "a", "b"}}

	parallel, err := newScheduler(t, src, 3).Run(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	sequential, err := newScheduler(t, src, 1).Run(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	for i := range parallel.Results {
		p, q := parallel.Results[i].Record, sequential.Results[i].Record
		p.StudyID, q.StudyID = "", ""
		if p != q {
			t.Fatalf("symbol %s differs between worker counts:\n%+v\n%+v", p.Symbol, p, q)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	src := &fakeSource{series: map[string]engine.PriceSeries{"a": walk("a", 100, 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newScheduler(t, src, 2).Run(ctx, Job{Symbols: []string{"a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(report.Results) != 0 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

type invalidSampler struct{}

func (invalidSampler) Suggest(optimizer.SearchSpace, []optimizer.Trial) optimizer.ParameterSet {
	return optimizer.ParameterSet{optimizer.ParamPeriod: 12, optimizer.ParamMult: -1}
}

func TestRunKeepsSymbolWhenEveryTrialFails(t *testing.T) {
	src := &fakeSource{series: map[string]engine.PriceSeries{"a": walk("a", 120, 4)}}
	cfg := optimizer.DefaultConfig()
	cfg.Trials = 4
	opt, err := optimizer.New(cfg, engine.NewEvaluator(engine.DefaultBacktestConfig(), nil), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	opt = opt.WithSampler(func(int64) optimizer.Sampler { return invalidSampler{} })

	report, err := New(src, opt, 1, zaptest.NewLogger(t)).Run(context.Background(), Job{Symbols: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 1 || len(report.Failures) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	rec := report.Results[0].Record
	if rec.Trials != 4 || rec.FailedTrials != 4 || rec.SharpeRatio != 0 || rec.TotalTrades != 0 {
		t.Fatalf("expected a neutral record, got %+v", rec)
	}
}
