package results

import (
	"sort"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/optimizer"
)

// OptimizationRecord is the persisted per-symbol summary of a study.
type OptimizationRecord struct {
	Symbol             string  `json:"symbol"`
	Period             int     `json:"period"`
	Mult               float64 `json:"mult"`
	InvestmentFraction float64 `json:"investment_fraction"`
	MaxPyramiding      int     `json:"max_pyramiding"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	WinRate            float64 `json:"win_rate"`
	TotalReturn        float64 `json:"total_return"`
	LastSignal         int     `json:"last_signal"`
	LatestAmount       float64 `json:"latest_amount"`
	TotalTrades        int     `json:"total_trades"`
	Trials             int     `json:"trials"`
	FailedTrials       int     `json:"failed_trials"`
	StudyID            string  `json:"study_id"`
}

// FromTrial builds a record from the chosen trial of a study.
func FromTrial(study *optimizer.Study, best optimizer.Trial, base engine.Params, series engine.PriceSeries) OptimizationRecord {
	p := best.Params.Apply(base)
	return OptimizationRecord{
		Symbol:             study.Symbol,
		Period:             p.Period,
		Mult:               p.Mult,
		InvestmentFraction: p.InvestmentFraction,
		MaxPyramiding:      p.MaxPyramiding,
		SharpeRatio:        best.Metrics.SharpeRatio,
		MaxDrawdown:        best.Metrics.MaxDrawdown,
		WinRate:            best.Metrics.WinRate,
		TotalReturn:        best.Metrics.TotalReturn,
		LastSignal:         int(best.LastSignal.Code),
		LatestAmount:       series.LatestTradingAmount(),
		TotalTrades:        best.Metrics.TotalTrades,
		Trials:             len(study.Trials),
		FailedTrials:       study.Failed(),
		StudyID:            study.ID,
	}
}

// FromBacktest builds a record from a single fixed-parameter run.
func FromBacktest(res engine.BacktestResult, series engine.PriceSeries) OptimizationRecord {
	return OptimizationRecord{
		Symbol:             res.Symbol,
		Period:             res.Params.Period,
		Mult:               res.Params.Mult,
		InvestmentFraction: res.Params.InvestmentFraction,
		MaxPyramiding:      res.Params.MaxPyramiding,
		SharpeRatio:        res.Metrics.SharpeRatio,
		MaxDrawdown:        res.Metrics.MaxDrawdown,
		WinRate:            res.Metrics.WinRate,
		TotalReturn:        res.Metrics.TotalReturn,
		LastSignal:         int(res.LastSignal.Code),
		LatestAmount:       series.LatestTradingAmount(),
		TotalTrades:        res.Metrics.TotalTrades,
		Trials:             1,
	}
}

// SortBySymbol orders records deterministically in place.
func SortBySymbol(records []OptimizationRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })
}
