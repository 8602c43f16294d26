package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPlannerWorkers(t *testing.T) {
	p := NewPlanner(4)
	for jobs, want := range map[int]int{0: 1, 1: 1, 3: 3, 10: 4} {
		if got := p.Workers(jobs); got != want {
			t.Fatalf("Workers(%d) = %d, want %d", jobs, got, want)
		}
	}
	if NewPlanner(0).MaxWorkers < 1 {
		t.Fatal("default planner must have at least one worker")
	}
}

func TestPerformanceMonitorSLOs(t *testing.T) {
	pm := NewPerformanceMonitor(SLOConfig{MaxLatencyP95: 50 * time.Millisecond, MinBarsPerSec: 1000})
	for i := 1; i <= 10; i++ {
		pm.RecordBenchmark(fmt.Sprint("s", i), time.Duration(i)*10*time.Millisecond, 500)
	}
	if got := pm.Percentile(0.5); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if v := pm.CheckSLOs(); len(v) == 0 {
		t.Fatal("expected latency and throughput violations")
	}
}

func TestManifestCarriesSnapshot(t *testing.T) {
	cm := NewConfigManager()
	snap := cm.SnapshotConfig("job-1", "test", map[string]string{"trials": "50"}, map[string]string{"pw": "x"})
	again := NewConfigManager().SnapshotConfig("job-2", "test", map[string]string{"trials": "50"}, nil)
	if snap.ConfigHash != again.ConfigHash {
		t.Fatal("equal configs must hash equally")
	}
	m := cm.Manifest("job-1", DefaultParams(), map[string]string{"600000": "abc"})
	if m.ConfigSnapshot != snap || m.EngineVersion != EngineVersion || m.StrategyHash == "" {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func TestToAPIError(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("x: %w", ErrInvalidParams): "INVALID_PARAMS",
		fmt.Errorf("x: %w", ErrNoData):        "DATA_NOT_FOUND",
		fmt.Errorf("x: %w", ErrInvalidSeries): "INVALID_SERIES",
		errors.New("boom"):                    "EXECUTION_FAILED",
	}
	for err, code := range cases {
		if got := ToAPIError(err).Code; got != code {
			t.Fatalf("%v mapped to %s, want %s", err, got, code)
		}
	}
	if ToAPIError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}
