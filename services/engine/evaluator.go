package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BacktestConfig holds account settings shared by every run.
type BacktestConfig struct {
	InitialCash  float64   `json:"initial_cash" yaml:"initial_cash"`
	Commission   float64   `json:"commission" yaml:"commission"`
	RiskFreeRate float64   `json:"risk_free_rate" yaml:"risk_free_rate"`
	AnnualFactor float64   `json:"annual_factor" yaml:"annual_factor"`
	EntryMode    EntryMode `json:"entry_mode" yaml:"-"`
	RecordTrace  bool      `json:"record_trace" yaml:"record_trace"`
}

func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCash:  100000,
		Commission:   0.001,
		RiskFreeRate: 0.02,
		AnnualFactor: 252,
		EntryMode:    EntryModeNextBarOpen,
	}
}

// BacktestResult is the outcome of one (series, params) evaluation.
type BacktestResult struct {
	Symbol     string        `json:"symbol"`
	Params     Params        `json:"params"`
	NoData     bool          `json:"no_data"`
	Bars       int           `json:"bars"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Metrics    Metrics       `json:"metrics"`
	LastSignal Signal        `json:"last_signal"`
	Direction  Direction     `json:"direction"`
	Position   Position      `json:"position"`
	Trades     []ClosedTrade `json:"trades"`
	Values     []float64     `json:"-"`
	Trace      *EventLog     `json:"-"`
}

// Evaluator replays a series through the signal model, the sizer and an
// execution engine.
type Evaluator struct {
	cfg       BacktestConfig
	logger    *zap.Logger
	execution func(BacktestConfig) ExecutionEngine
}

func NewEvaluator(cfg BacktestConfig, logger *zap.Logger) *Evaluator {
	d := DefaultBacktestConfig()
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = d.InitialCash
	}
	if cfg.AnnualFactor <= 0 {
		cfg.AnnualFactor = d.AnnualFactor
	}
	if cfg.Commission < 0 {
		cfg.Commission = d.Commission
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		cfg:    cfg,
		logger: logger,
		execution: func(c BacktestConfig) ExecutionEngine {
			return NewSimBroker(SimConfig{InitialCash: c.InitialCash, Commission: c.Commission, EntryMode: c.EntryMode})
		},
	}
}

// WithExecution swaps the execution engine factory.
func (e *Evaluator) WithExecution(factory func(BacktestConfig) ExecutionEngine) *Evaluator {
	cp := *e
	cp.execution = factory
	return &cp
}

func (e *Evaluator) Config() BacktestConfig { return e.cfg }

// Run evaluates params over series. An empty series yields a NoData result
// and no error; invalid params are the only fatal error.
func (e *Evaluator) Run(series PriceSeries, params Params) (BacktestResult, error) {
	res := BacktestResult{Symbol: series.Symbol, Params: params}
	if err := params.Validate(); err != nil {
		return res, err
	}
	if series.Empty() {
		res.NoData = true
		res.Metrics = Metrics{InitialValue: e.cfg.InitialCash, FinalValue: e.cfg.InitialCash}
		return res, nil
	}

	bars := series.Bars
	ind := params.Indicators()
	if warm := ind.Warmup(); len(bars) <= warm {
		e.logger.Debug("series shorter than indicator warm-up",
			zap.String("symbol", series.Symbol),
			zap.Int("bars", len(bars)),
			zap.Int("warmup", warm),
		)
	}
	snaps := ComputeIndicators(bars, ind)
	model := ChandelierZLSMA{Mult: params.Mult}
	sizer := params.Sizer()
	ex := e.execution(e.cfg)

	var (
		state  EngineState
		sig    Signal
		pos    Position
		values = make([]float64, len(bars))
	)
	if e.cfg.RecordTrace {
		res.Trace = &EventLog{}
	}

	for i, bar := range bars {
		e.applyFills(&pos, ex, ex.BeginBar(bar), series.Symbol, res.Trace)

		state, sig = model.Step(state, StepInput{Close: bar.Close, Snapshot: snaps[i]})
		decision := sizer.Decide(SizingInput{Signal: sig, Cash: ex.Cash(), Price: bar.Close, Position: pos})

		if decision.Action != ActionHold {
			side := TradeSideBuy
			if decision.Action == ActionSell {
				side = TradeSideSell
			}
			order := Order{Side: side, Size: decision.Size, AddOn: decision.AddOn, Reason: decision.Reason, Placed: bar.Date}
			if res.Trace != nil {
				res.Trace.Append(Event{Date: bar.Date, Type: EventOrderSubmit, Symbol: series.Symbol, Details: map[string]string{
					"side": side.String(), "size": fmt.Sprint(order.Size), "reason": order.Reason,
				}})
			}
			e.applyFills(&pos, ex, ex.Submit(order, bar), series.Symbol, res.Trace)
		}

		values[i] = ex.Value(bar.Close)
		if res.Trace != nil {
			res.Trace.Record(DecisionRecord{
				Date: bar.Date, Close: bar.Close, Snapshot: snaps[i], Stops: state.Stops,
				Direction: state.Direction, Signal: sig, Decision: decision, Position: pos, Value: values[i],
			})
		}
	}

	res.Bars = len(bars)
	res.Start, res.End = bars[0].Date, bars[len(bars)-1].Date
	res.LastSignal = sig
	res.Direction = state.Direction
	res.Position = pos
	res.Trades = ex.ClosedTrades()
	res.Values = values
	res.Metrics = ComputeMetrics(e.cfg.InitialCash, values, res.Trades, e.cfg.RiskFreeRate, e.cfg.AnnualFactor)

	e.logger.Debug("backtest complete",
		zap.String("symbol", series.Symbol),
		zap.Int("bars", res.Bars),
		zap.Int("trades", res.Metrics.TotalTrades),
		zap.Float64("sharpe", res.Metrics.SharpeRatio),
	)
	return res, nil
}

// applyFills keeps the sizing view of the position in step with the broker.
func (e *Evaluator) applyFills(pos *Position, ex ExecutionEngine, fills []Fill, symbol string, log *EventLog) {
	for _, f := range fills {
		if log != nil {
			typ := EventOrderFill
			details := map[string]string{"side": f.Order.Side.String(), "size": fmt.Sprint(f.Size), "price": fmt.Sprint(f.Price)}
			if f.Rejected {
				typ = EventOrderRejected
				details["reason"] = f.Reason
			}
			log.Append(Event{Date: f.Date, Type: typ, Symbol: symbol, Details: details})
		}
		if f.Rejected {
			e.logger.Debug("order rejected", zap.String("symbol", symbol), zap.String("reason", f.Reason))
			continue
		}
		wasFlat := pos.Flat()
		size, avg := ex.Position()
		pos.Size, pos.EntryPrice = size, avg
		switch {
		case pos.Flat():
			pos.PyramidCount = 0
		case f.Order.Side == TradeSideBuy && f.Order.AddOn && !wasFlat:
			pos.PyramidCount++
		case wasFlat:
			pos.PyramidCount = 0
		}
	}
}
