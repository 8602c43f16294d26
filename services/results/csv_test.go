package results

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"chandelier-backtest/services/engine"
)

func sampleRecords() []OptimizationRecord {
	return []OptimizationRecord{
		{Symbol: "600519", Period: 14, Mult: 2.1, InvestmentFraction: 0.75, MaxPyramiding: 2, SharpeRatio: 1.234567,
			MaxDrawdown: 12.5, WinRate: 0.6, TotalReturn: 0.42, LastSignal: 2, LatestAmount: 1.5e9, TotalTrades: 5, Trials: 100, StudyID: "b"},
		{Symbol: "000001", Period: 11, Mult: 1.5, InvestmentFraction: 0.5, MaxPyramiding: 0, SharpeRatio: -0.25,
			MaxDrawdown: 30, WinRate: 0, TotalReturn: -0.1, LastSignal: -1, LatestAmount: 123.45, Trials: 100, FailedTrials: 3, StudyID: "a"},
	}
}

func TestCSVRoundTripSorted(t *testing.T) {
	recs := sampleRecords()
	SortBySymbol(recs)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), strings.Join(Header, ",")+"\n") {
		t.Fatalf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Symbol != "000001" || got[1].Symbol != "600519" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[1] != recs[1] || got[0] != recs[0] {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", got, recs)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("symbol,period\nx,1\n")); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestWriteTrace(t *testing.T) {
	d := []engine.DecisionRecord{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 10, Signal: engine.Signal{Code: engine.SignalNone, Reason: "indicator warm-up"}},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Close: 11,
			Snapshot:  engine.IndicatorSnapshot{Ready: true, ATR: 0.5, RollingHigh: 11, RollingLow: 9, ZLSMA: 10.5},
			Stops:     engine.StopState{Ready: true, LongStop: 10, ShortStop: 10},
			Direction: engine.DirectionLong,
			Signal:    engine.Signal{Code: engine.SignalStrongEntry, Reason: "trend flipped long, close above zlsma"},
			Decision:  engine.SizingDecision{Action: engine.ActionBuy, Size: 700, Reason: "entry"},
			Value:     100000},
	}
	var buf bytes.Buffer
	if err := WriteTrace(&buf, d); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "2024-03-01,10.000000,false,,,,,,,neutral,0,indicator warm-up,hold") {
		t.Fatalf("warm-up row %q", lines[1])
	}
	if !strings.Contains(lines[2], "long,1,") || !strings.Contains(lines[2], "buy,700,entry") {
		t.Fatalf("entry row %q", lines[2])
	}
}
