package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
	"chandelier-backtest/services/optimizer"
	"chandelier-backtest/services/results"
)

// Job is one multi-symbol optimization run.
type Job struct {
	ID      string
	Symbols []string
	Start   time.Time
	End     time.Time
}

// SymbolResult is the outcome of one successfully optimized symbol.
type SymbolResult struct {
	Symbol   string
	Record   results.OptimizationRecord
	Study    *optimizer.Study
	Checksum string
	Gaps     int
}

type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// Report holds results sorted by symbol and the symbols that were skipped.
type Report struct {
	JobID    string
	Results  []SymbolResult
	Failures []SymbolFailure
	Duration time.Duration
}

func (r *Report) Records() []results.OptimizationRecord {
	out := make([]results.OptimizationRecord, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Record
	}
	return out
}

// Checksums maps symbol to the data checksum its study ran on.
func (r *Report) Checksums() map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Symbol] = res.Checksum
	}
	return out
}

var ErrNoTrials = errors.New("study has no trials")

// Scheduler fans one optimizer out over symbols with a bounded worker pool.
// Workers share only the read-only optimizer configuration and data source.
type Scheduler struct {
	source    marketdata.DataSource
	optimizer *optimizer.Optimizer
	loader    *engine.Loader
	planner   *engine.Planner
	perf      *engine.PerformanceMonitor
	logger    *zap.Logger
}

func New(source marketdata.DataSource, opt *optimizer.Optimizer, workers int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source:    source,
		optimizer: opt,
		loader:    engine.NewLoader(engine.LoaderConfig{GapPolicy: engine.GapFlag}),
		planner:   engine.NewPlanner(workers),
		perf:      engine.NewPerformanceMonitor(engine.SLOConfig{}),
		logger:    logger,
	}
}

// WithMonitor sets the monitor that receives per-symbol timings.
func (s *Scheduler) WithMonitor(m *engine.PerformanceMonitor) *Scheduler {
	s.perf = m
	return s
}

func (s *Scheduler) Monitor() *engine.PerformanceMonitor { return s.perf }

// Run optimizes every symbol of job. Per-symbol failures are logged and
// reported, never returned; the error is only set when ctx ends first.
func (s *Scheduler) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	numWorkers := s.planner.Workers(len(job.Symbols))

	s.logger.Info("Starting parallel optimization",
		zap.String("job_id", job.ID),
		zap.Int("workers", numWorkers),
		zap.Int("symbols", len(job.Symbols)),
	)

	symbolChan := make(chan string, len(job.Symbols))
	resultChan := make(chan SymbolResult, len(job.Symbols))
	errorChan := make(chan SymbolFailure, len(job.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, job, symbolChan, resultChan, errorChan, &wg)
	}

	for _, symbol := range job.Symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	wg.Wait()
	close(resultChan)
	close(errorChan)

	report := &Report{JobID: job.ID}
	for r := range resultChan {
		report.Results = append(report.Results, r)
	}
	for f := range errorChan {
		report.Failures = append(report.Failures, f)
	}
	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].Symbol < report.Results[j].Symbol })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Symbol < report.Failures[j].Symbol })
	report.Duration = time.Since(start)

	s.logger.Info("Optimization job finished",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", len(report.Results)),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("duration", report.Duration),
		zap.Duration("p95_symbol", s.perf.Percentile(0.95)),
	)
	return report, ctx.Err()
}

func (s *Scheduler) worker(
	ctx context.Context,
	workerID int,
	job Job,
	symbolChan <-chan string,
	resultChan chan<- SymbolResult,
	errorChan chan<- SymbolFailure,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for symbol := range symbolChan {
		if ctx.Err() != nil {
			errorChan <- SymbolFailure{Symbol: symbol, Error: ctx.Err().Error()}
			continue
		}
		s.logger.Debug("Worker processing symbol",
			zap.Int("worker_id", workerID),
			zap.String("symbol", symbol),
		)

		result, err := s.processSymbol(ctx, job, symbol)
		if err != nil {
			level := s.logger.Warn
			if !errors.Is(err, engine.ErrNoData) {
				level = s.logger.Error
			}
			level("Symbol skipped", zap.String("symbol", symbol), zap.Error(err))
			errorChan <- SymbolFailure{Symbol: symbol, Error: err.Error()}
			continue
		}
		resultChan <- result
	}
}

// processSymbol converts panics into errors so a broken symbol cannot take
// the pool down.
func (s *Scheduler) processSymbol(ctx context.Context, job Job, symbol string) (res SymbolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while optimizing %s: %v", symbol, r)
		}
	}()
	started := time.Now()

	series, err := s.source.Fetch(ctx, symbol, job.Start, job.End)
	if err != nil {
		return res, fmt.Errorf("failed to load market data: %w", err)
	}
	series, gaps, err := s.loader.Prepare(series)
	if err != nil {
		return res, err
	}

	study, err := s.optimizer.Optimize(ctx, series)
	if err != nil {
		return res, err
	}
	best, ok := study.Best()
	if !ok {
		return res, fmt.Errorf("%s: %w", symbol, ErrNoTrials)
	}

	s.perf.RecordBenchmark(symbol, time.Since(started), series.Len()*len(study.Trials))
	return SymbolResult{
		Symbol:   symbol,
		Record:   results.FromTrial(study, best, s.optimizer.Config().Base, series),
		Study:    study,
		Checksum: s.loader.Checksum(series),
		Gaps:     len(gaps),
	}, nil
}
