package engine

// Run timing and throughput SLOs

import (
	"sort"
	"sync"
	"time"
)

type BenchmarkResult struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"duration"`
	Bars       int           `json:"bars"`
	BarsPerSec float64       `json:"bars_per_sec"`
}

type SLOConfig struct {
	MaxLatencyP95 time.Duration
	MinBarsPerSec float64
}

// PerformanceMonitor collects per-symbol run timings. Safe for concurrent use.
type PerformanceMonitor struct {
	config  SLOConfig
	mu      sync.Mutex
	results []BenchmarkResult
}

func NewPerformanceMonitor(config SLOConfig) *PerformanceMonitor {
	return &PerformanceMonitor{
		config:  config,
		results: make([]BenchmarkResult, 0),
	}
}

func (pm *PerformanceMonitor) RecordBenchmark(name string, duration time.Duration, bars int) {
	result := BenchmarkResult{Name: name, Duration: duration, Bars: bars}
	if duration > 0 {
		result.BarsPerSec = float64(bars) / duration.Seconds()
	}
	pm.mu.Lock()
	pm.results = append(pm.results, result)
	pm.mu.Unlock()
}

func (pm *PerformanceMonitor) Results() []BenchmarkResult {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make([]BenchmarkResult, len(pm.results))
	copy(out, pm.results)
	return out
}

// Percentile returns the q-quantile (0..1) of recorded durations.
func (pm *PerformanceMonitor) Percentile(q float64) time.Duration {
	res := pm.Results()
	if len(res) == 0 {
		return 0
	}
	d := make([]time.Duration, len(res))
	for i, r := range res {
		d[i] = r.Duration
	}
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	idx := int(q * float64(len(d)-1))
	return d[idx]
}

func (pm *PerformanceMonitor) CheckSLOs() []string {
	var violations []string
	if pm.config.MaxLatencyP95 > 0 && pm.Percentile(0.95) > pm.config.MaxLatencyP95 {
		violations = append(violations, "p95 latency above "+pm.config.MaxLatencyP95.String())
	}
	if pm.config.MinBarsPerSec > 0 {
		for _, r := range pm.Results() {
			if r.BarsPerSec > 0 && r.BarsPerSec < pm.config.MinBarsPerSec {
				violations = append(violations, r.Name+" below minimum bars/sec")
			}
		}
	}
	return violations
}
