package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
)

type Config struct {
	Trials  int         `json:"trials"`
	Seed    int64       `json:"seed"`
	Sampler string      `json:"sampler"` // "tpe" or "random"
	Space   SearchSpace `json:"space"`
	// Base supplies every parameter the search space does not cover.
	Base engine.Params `json:"base"`
}

func DefaultConfig() Config {
	return Config{
		Trials:  100,
		Seed:    42,
		Sampler: "tpe",
		Space:   DefaultSearchSpace(),
		Base:    engine.DefaultParams(),
	}
}

// Optimizer searches the parameter space of one symbol with trials run
// strictly one after another.
type Optimizer struct {
	cfg        Config
	evaluator  *engine.Evaluator
	logger     *zap.Logger
	newSampler func(seed int64) Sampler
}

func New(cfg Config, evaluator *engine.Evaluator, logger *zap.Logger) (*Optimizer, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidSpace, cfg.Trials)
	}
	if err := cfg.Space.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Sampler
	return &Optimizer{
		cfg:        cfg,
		evaluator:  evaluator,
		logger:     logger,
		newSampler: func(seed int64) Sampler { return NewSampler(name, seed) },
	}, nil
}

// WithSampler replaces the sampler factory.
func (o *Optimizer) WithSampler(factory func(seed int64) Sampler) *Optimizer {
	cp := *o
	cp.newSampler = factory
	return &cp
}

func (o *Optimizer) Config() Config { return o.cfg }

// Optimize runs the configured number of trials over series. An empty
// series is reported as engine.ErrNoData.
func (o *Optimizer) Optimize(ctx context.Context, series engine.PriceSeries) (*Study, error) {
	if series.Empty() {
		return nil, fmt.Errorf("optimize %s: %w", series.Symbol, engine.ErrNoData)
	}

	study := &Study{
		ID:        uuid.New().String(),
		Symbol:    series.Symbol,
		Seed:      o.cfg.Seed,
		Trials:    make([]Trial, 0, o.cfg.Trials),
		StartedAt: time.Now(),
	}
	sampler := o.newSampler(o.cfg.Seed)

	for i := 0; i < o.cfg.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return study, err
		}
		candidate := sampler.Suggest(o.cfg.Space, study.Trials)
		trial := o.runTrial(i, candidate, series)
		if trial.State == TrialFailed {
			o.logger.Debug("trial failed",
				zap.String("symbol", series.Symbol),
				zap.Int("trial", i),
				zap.String("error", trial.Error),
			)
		}
		study.Trials = append(study.Trials, trial)
	}
	study.Duration = time.Since(study.StartedAt)

	if best, ok := study.Best(); ok {
		o.logger.Info("optimization finished",
			zap.String("symbol", series.Symbol),
			zap.String("study_id", study.ID),
			zap.Int("trials", len(study.Trials)),
			zap.Int("failed", study.Failed()),
			zap.Float64("best_sharpe", best.Metrics.SharpeRatio),
			zap.Duration("duration", study.Duration),
		)
	}
	return study, nil
}

// runTrial never panics; failures come back as TrialFailed with a neutral
// objective.
func (o *Optimizer) runTrial(number int, candidate ParameterSet, series engine.PriceSeries) (trial Trial) {
	start := time.Now()
	trial = Trial{Number: number, Params: candidate.Clone(), State: TrialComplete}
	defer func() {
		if r := recover(); r != nil {
			trial.State, trial.Error, trial.Objective = TrialFailed, fmt.Sprintf("panic: %v", r), 0
		}
		trial.Duration = time.Since(start)
	}()

	res, err := o.evaluator.Run(series, candidate.Apply(o.cfg.Base))
	if err != nil {
		trial.State, trial.Error = TrialFailed, err.Error()
		return trial
	}
	trial.Metrics = res.Metrics
	trial.LastSignal = res.LastSignal
	if res.Metrics.SharpeRatio != 0 {
		trial.Objective = -res.Metrics.SharpeRatio
	}
	return trial
}
