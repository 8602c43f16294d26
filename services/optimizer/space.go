package optimizer

import (
	"errors"
	"fmt"
	"math"

	"chandelier-backtest/services/engine"
)

var ErrInvalidSpace = errors.New("invalid search space")

// ParamType defines how a parameter is sampled.
type ParamType string

const (
	ParamTypeInt   ParamType = "int"
	ParamTypeFloat ParamType = "float"
)

// Parameter is one tunable dimension with inclusive bounds.
type Parameter struct {
	Name string    `json:"name" yaml:"name"`
	Type ParamType `json:"type" yaml:"type"`
	Min  float64   `json:"min" yaml:"min"`
	Max  float64   `json:"max" yaml:"max"`
}

// SearchSpace is ordered; samplers walk it in slice order.
type SearchSpace []Parameter

// Parameter names understood by ParameterSet.Apply.
const (
	ParamPeriod             = "period"
	ParamZLSMAPeriod        = "zlsma_period"
	ParamMult               = "mult"
	ParamInvestmentFraction = "investment_fraction"
	ParamMaxPyramiding      = "max_pyramiding"
)

var knownParams = map[string]bool{
	ParamPeriod:             true,
	ParamZLSMAPeriod:        true,
	ParamMult:               true,
	ParamInvestmentFraction: true,
	ParamMaxPyramiding:      true,
}

func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		{Name: ParamPeriod, Type: ParamTypeInt, Min: 10, Max: 20},
		{Name: ParamMult, Type: ParamTypeFloat, Min: 1.5, Max: 2.5},
		{Name: ParamInvestmentFraction, Type: ParamTypeFloat, Min: 0.5, Max: 1.0},
		{Name: ParamMaxPyramiding, Type: ParamTypeInt, Min: 0, Max: 3},
	}
}

func (s SearchSpace) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no parameters", ErrInvalidSpace)
	}
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		switch {
		case !knownParams[p.Name]:
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidSpace, p.Name)
		case seen[p.Name]:
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSpace, p.Name)
		case p.Type != ParamTypeInt && p.Type != ParamTypeFloat:
			return fmt.Errorf("%w: %s has type %q", ErrInvalidSpace, p.Name, p.Type)
		case math.IsNaN(p.Min) || math.IsNaN(p.Max) || p.Min > p.Max:
			return fmt.Errorf("%w: %s bounds [%v, %v]", ErrInvalidSpace, p.Name, p.Min, p.Max)
		case p.Type == ParamTypeInt && (p.Min != math.Trunc(p.Min) || p.Max != math.Trunc(p.Max)):
			return fmt.Errorf("%w: %s integer bounds [%v, %v] not whole", ErrInvalidSpace, p.Name, p.Min, p.Max)
		}
		seen[p.Name] = true
	}
	return nil
}

// Clamp forces v into the parameter's bounds, rounding integers.
func (p Parameter) Clamp(v float64) float64 {
	if p.Type == ParamTypeInt {
		v = math.Round(v)
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// ParameterSet is one candidate: parameter name to value.
type ParameterSet map[string]float64

func (ps ParameterSet) Clone() ParameterSet {
	clone := make(ParameterSet, len(ps))
	for k, v := range ps {
		clone[k] = v
	}
	return clone
}

// Apply overlays the candidate on base.
func (ps ParameterSet) Apply(base engine.Params) engine.Params {
	out := base
	if v, ok := ps[ParamPeriod]; ok {
		out.Period = int(math.Round(v))
	}
	if v, ok := ps[ParamZLSMAPeriod]; ok {
		out.ZLSMAPeriod = int(math.Round(v))
	}
	if v, ok := ps[ParamMult]; ok {
		out.Mult = v
	}
	if v, ok := ps[ParamInvestmentFraction]; ok {
		out.InvestmentFraction = v
	}
	if v, ok := ps[ParamMaxPyramiding]; ok {
		out.MaxPyramiding = int(math.Round(v))
	}
	return out
}
