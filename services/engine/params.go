package engine

import (
	"fmt"
	"math"
)

// Params configures one Chandelier Exit + ZLSMA backtest.
type Params struct {
	Period             int     `json:"period" yaml:"period"`
	ZLSMAPeriod        int     `json:"zlsma_period,omitempty" yaml:"zlsma_period"` // 0 means Period
	Mult               float64 `json:"mult" yaml:"mult"`
	UseClose           bool    `json:"use_close" yaml:"use_close"`
	InvestmentFraction float64 `json:"investment_fraction" yaml:"investment_fraction"`
	MaxPyramiding      int     `json:"max_pyramiding" yaml:"max_pyramiding"`
	MinTradeUnit       int64   `json:"min_trade_unit" yaml:"min_trade_unit"`
}

// DefaultParams mirrors the settings the screening tools run with.
func DefaultParams() Params {
	return Params{
		Period:             14,
		Mult:               2,
		UseClose:           true,
		InvestmentFraction: 0.8,
		MaxPyramiding:      0,
		MinTradeUnit:       100,
	}
}

func (p Params) zlsmaPeriod() int {
	if p.ZLSMAPeriod > 0 {
		return p.ZLSMAPeriod
	}
	return p.Period
}

// Indicators returns the indicator configuration these params imply.
func (p Params) Indicators() IndicatorConfig {
	return IndicatorConfig{Period: p.Period, ZLSMAPeriod: p.zlsmaPeriod(), UseClose: p.UseClose}
}

// Sizer returns the position sizer these params imply.
func (p Params) Sizer() PositionSizer {
	return PositionSizer{
		InvestmentFraction: p.InvestmentFraction,
		MaxPyramiding:      p.MaxPyramiding,
		MinTradeUnit:       p.MinTradeUnit,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Period < 2:
		return fmt.Errorf("%w: period %d < 2", ErrInvalidParams, p.Period)
	case p.ZLSMAPeriod != 0 && p.ZLSMAPeriod < 2:
		return fmt.Errorf("%w: zlsma_period %d < 2", ErrInvalidParams, p.ZLSMAPeriod)
	case math.IsNaN(p.Mult) || p.Mult <= 0:
		return fmt.Errorf("%w: mult %v must be positive", ErrInvalidParams, p.Mult)
	case math.IsNaN(p.InvestmentFraction) || p.InvestmentFraction <= 0 || p.InvestmentFraction > 1:
		return fmt.Errorf("%w: investment_fraction %v outside (0, 1]", ErrInvalidParams, p.InvestmentFraction)
	case p.MaxPyramiding < 0:
		return fmt.Errorf("%w: max_pyramiding %d < 0", ErrInvalidParams, p.MaxPyramiding)
	case p.MinTradeUnit < 1:
		return fmt.Errorf("%w: min_trade_unit %d < 1", ErrInvalidParams, p.MinTradeUnit)
	}
	return nil
}
