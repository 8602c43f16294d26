package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "chandelier-backtest/proto"
	"chandelier-backtest/services/config"
	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
	"chandelier-backtest/services/optimizer"
	"chandelier-backtest/services/scheduler"
)

const dateLayout = "2006-01-02"

// OptimizerService serves single backtests and multi-symbol optimizations
// over one data source.
type OptimizerService struct {
	pb.UnimplementedOptimizerServiceServer
	cfg     *config.Config
	source  marketdata.DataSource
	loader  *engine.Loader
	monitor *engine.PerformanceMonitor
	logger  *zap.Logger
}

func NewOptimizerService(cfg *config.Config, source marketdata.DataSource, logger *zap.Logger) *OptimizerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizerService{
		cfg:     cfg,
		source:  source,
		loader:  engine.NewLoader(engine.LoaderConfig{GapPolicy: engine.GapFlag}),
		monitor: engine.NewPerformanceMonitor(engine.SLOConfig{MaxLatencyP95: 30 * time.Second}),
		logger:  logger,
	}
}

func (s *OptimizerService) window(start, end string) (time.Time, time.Time, error) {
	from, to, err := s.cfg.Dates()
	if err != nil {
		return from, to, err
	}
	if start != "" {
		if from, err = time.Parse(dateLayout, start); err != nil {
			return from, to, status.Errorf(codes.InvalidArgument, "start %q: %v", start, err)
		}
	}
	if end != "" {
		if to, err = time.Parse(dateLayout, end); err != nil {
			return from, to, status.Errorf(codes.InvalidArgument, "end %q: %v", end, err)
		}
	}
	if to.Before(from) {
		return from, to, status.Errorf(codes.InvalidArgument, "end before start")
	}
	return from, to, nil
}

func (s *OptimizerService) params(p *pb.StrategyParams) engine.Params {
	out := s.cfg.Strategy
	if p == nil {
		return out
	}
	out.Period = p.Period
	out.ZLSMAPeriod = p.ZLSMAPeriod
	out.Mult = p.Mult
	out.InvestmentFraction = p.InvestmentFraction
	out.MaxPyramiding = p.MaxPyramiding
	if p.UseClose != nil {
		out.UseClose = *p.UseClose
	}
	if p.MinTradeUnit > 0 {
		out.MinTradeUnit = p.MinTradeUnit
	}
	return out
}

// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	apiErr := engine.ToAPIError(err)
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case apiErr.Code == "INVALID_PARAMS", apiErr.Code == "INVALID_SERIES",
		errors.Is(err, optimizer.ErrInvalidSpace):
		code = codes.InvalidArgument
	case apiErr.Code == "DATA_NOT_FOUND":
		code = codes.NotFound
	}
	return status.Error(code, apiErr.Error())
}

func (s *OptimizerService) Backtest(ctx context.Context, req *pb.BacktestRequest) (*pb.BacktestResponse, error) {
	startTime := time.Now()
	jobID := uuid.New().String()
	if req.Symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}
	from, to, err := s.window(req.Start, req.End)
	if err != nil {
		return nil, toStatus(err)
	}
	params := s.params(req.Params)
	if err := params.Validate(); err != nil {
		return nil, toStatus(err)
	}

	series, err := s.source.Fetch(ctx, req.Symbol, from, to)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "load %s: %v", req.Symbol, err)
	}
	if !series.Empty() {
		if series, _, err = s.loader.Prepare(series); err != nil {
			return nil, toStatus(err)
		}
	}

	btCfg := s.cfg.EngineBacktest()
	if req.EntryMode != "" {
		btCfg.EntryMode = engine.ParseEntryMode(req.EntryMode)
	}
	res, err := engine.NewEvaluator(btCfg, s.logger).Run(series, params)
	if err != nil {
		return nil, toStatus(err)
	}
	elapsed := time.Since(startTime)
	s.monitor.RecordBenchmark("backtest:"+req.Symbol, elapsed, res.Bars)

	s.logger.Info("Backtest completed",
		zap.String("job_id", jobID),
		zap.String("symbol", req.Symbol),
		zap.Bool("no_data", res.NoData),
		zap.Float64("sharpe", res.Metrics.SharpeRatio),
		zap.Duration("execution_time", elapsed),
	)
	return convertBacktest(jobID, res, elapsed), nil
}

func (s *OptimizerService) Optimize(ctx context.Context, req *pb.OptimizeRequest) (*pb.OptimizeResponse, error) {
	startTime := time.Now()
	if len(req.Symbols) == 0 {
		return nil, status.Error(codes.InvalidArgument, "symbols are required")
	}
	from, to, err := s.window(req.Start, req.End)
	if err != nil {
		return nil, toStatus(err)
	}

	optCfg := s.cfg.Optimizer()
	if req.Trials > 0 {
		optCfg.Trials = req.Trials
	}
	if req.Seed != nil {
		optCfg.Seed = *req.Seed
	}
	if req.Sampler != "" {
		optCfg.Sampler = req.Sampler
	}
	opt, err := optimizer.New(optCfg, engine.NewEvaluator(s.cfg.EngineBacktest(), s.logger), s.logger)
	if err != nil {
		return nil, toStatus(err)
	}

	sched := scheduler.New(s.source, opt, s.cfg.Run.Workers, s.logger).WithMonitor(s.monitor)
	report, err := sched.Run(ctx, scheduler.Job{Symbols: req.Symbols, Start: from, End: to})
	if err != nil {
		return nil, toStatus(fmt.Errorf("optimize: %w", err))
	}

	resp := &pb.OptimizeResponse{
		JobId:         report.JobID,
		ExecutionTime: time.Since(startTime).Milliseconds(),
	}
	for _, r := range report.Records() {
		resp.Records = append(resp.Records, &pb.OptimizationRecord{
			Symbol:             r.Symbol,
			Period:             r.Period,
			Mult:               r.Mult,
			InvestmentFraction: r.InvestmentFraction,
			MaxPyramiding:      r.MaxPyramiding,
			SharpeRatio:        r.SharpeRatio,
			MaxDrawdown:        r.MaxDrawdown,
			WinRate:            r.WinRate,
			TotalReturn:        r.TotalReturn,
			LastSignal:         int32(r.LastSignal),
			LatestAmount:       r.LatestAmount,
			Trials:             r.Trials,
			FailedTrials:       r.FailedTrials,
		})
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, &pb.SymbolFailure{Symbol: f.Symbol, Error: f.Error})
	}
	return resp, nil
}

func convertBacktest(jobID string, res engine.BacktestResult, elapsed time.Duration) *pb.BacktestResponse {
	resp := &pb.BacktestResponse{
		JobId:  jobID,
		Symbol: res.Symbol,
		NoData: res.NoData,
		Bars:   res.Bars,
		Metrics: &pb.Metrics{
			SharpeRatio: res.Metrics.SharpeRatio,
			MaxDrawdown: res.Metrics.MaxDrawdown,
			WinRate:     res.Metrics.WinRate,
			TotalReturn: res.Metrics.TotalReturn,
			TotalTrades: res.Metrics.TotalTrades,
			FinalValue:  res.Metrics.FinalValue,
		},
		LastSignal:    int32(res.LastSignal.Code),
		LastReason:    res.LastSignal.Reason,
		Direction:     res.Direction.String(),
		PositionSize:  res.Position.Size,
		ExecutionTime: elapsed.Milliseconds(),
	}
	for _, t := range res.Trades {
		resp.Trades = append(resp.Trades, &pb.Trade{
			EntryDate: t.EntryDate.Format(dateLayout),
			ExitDate:  t.ExitDate.Format(dateLayout),
			MaxSize:   t.MaxSize,
			NetPnl:    t.NetPnL,
		})
	}
	return resp
}
