package main

import (
	"fmt"
	"math"
	"time"

	"chandelier-backtest/services/engine"
)

// time0 leaves a fetch window open on both sides.
var time0 time.Time

func daysToDuration(days int) time.Duration { return time.Duration(days) * 24 * time.Hour }

// ValidationSuite runs acceptance checks on a series before it is written.
type ValidationSuite struct {
	loader *engine.Loader
}

type ValidationReport struct {
	Series   engine.PriceSeries
	Checksum string
	Gaps     []time.Time
	Problems []string
}

func (r ValidationReport) OK() bool { return len(r.Problems) == 0 }

func NewValidationSuite(cfg engine.LoaderConfig) *ValidationSuite {
	return &ValidationSuite{loader: engine.NewLoader(cfg)}
}

// Run checks ordering and gaps through the loader, then checks
// the OHLC invariants of every bar.
func (v *ValidationSuite) Run(series engine.PriceSeries) ValidationReport {
	prepared, gaps, err := v.loader.Prepare(series)
	if err != nil {
		return ValidationReport{Series: series, Problems: []string{err.Error()}}
	}
	report := ValidationReport{Series: prepared, Gaps: gaps, Checksum: v.loader.Checksum(prepared)}
	for _, b := range prepared.Bars {
		if p := barProblem(b); p != "" {
			report.Problems = append(report.Problems, b.Date.Format("2006-01-02")+": "+p)
		}
	}
	return report
}

func barProblem(b engine.Bar) string {
	for _, x := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
			return "non-positive or non-finite price"
		}
	}
	switch {
	case b.Low > b.High:
		return fmt.Sprintf("low %v above high %v", b.Low, b.High)
	case b.Low > math.Min(b.Open, b.Close):
		return "low above open/close"
	case b.High < math.Max(b.Open, b.Close):
		return "high below open/close"
	case b.Volume < 0:
		return "negative volume"
	}
	return ""
}
