// Package proto holds the wire types of the optimizer service and its gRPC
// service description. Messages travel as JSON through JSONCodec.
package proto

type StrategyParams struct {
	Period             int     `json:"period"`
	ZLSMAPeriod        int     `json:"zlsma_period,omitempty"`
	Mult               float64 `json:"mult"`
	UseClose           *bool   `json:"use_close,omitempty"`
	InvestmentFraction float64 `json:"investment_fraction"`
	MaxPyramiding      int     `json:"max_pyramiding"`
	MinTradeUnit       int64   `json:"min_trade_unit,omitempty"`
}

type BacktestRequest struct {
	Symbol    string          `json:"symbol"`
	Start     string          `json:"start,omitempty"` // YYYY-MM-DD
	End       string          `json:"end,omitempty"`
	Params    *StrategyParams `json:"params,omitempty"`
	EntryMode string          `json:"entry_mode,omitempty"`
}

type Metrics struct {
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	TotalReturn float64 `json:"total_return"`
	TotalTrades int     `json:"total_trades"`
	FinalValue  float64 `json:"final_value"`
}

type Trade struct {
	EntryDate string  `json:"entry_date"`
	ExitDate  string  `json:"exit_date"`
	MaxSize   int64   `json:"max_size"`
	NetPnl    float64 `json:"net_pnl"`
}

type BacktestResponse struct {
	JobId         string   `json:"job_id"`
	Symbol        string   `json:"symbol"`
	NoData        bool     `json:"no_data"`
	Bars          int      `json:"bars"`
	Metrics       *Metrics `json:"metrics"`
	LastSignal    int32    `json:"last_signal"`
	LastReason    string   `json:"last_reason"`
	Direction     string   `json:"direction"`
	PositionSize  int64    `json:"position_size"`
	Trades        []*Trade `json:"trades"`
	ExecutionTime int64    `json:"execution_time_ms"`
}

type OptimizeRequest struct {
	Symbols []string `json:"symbols"`
	Trials  int      `json:"trials,omitempty"`
	Seed    *int64   `json:"seed,omitempty"`
	Sampler string   `json:"sampler,omitempty"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
}

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
	LastSignal         int32   `json:"last_signal"`
	LatestAmount       float64 `json:"latest_amount"`
	Trials             int     `json:"trials"`
	FailedTrials       int     `json:"failed_trials"`
}

type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type OptimizeResponse struct {
	JobId         string                `json:"job_id"`
	Records       []*OptimizationRecord `json:"records"`
	Failures      []*SymbolFailure      `json:"failures"`
	ExecutionTime int64                 `json:"execution_time_ms"`
}
