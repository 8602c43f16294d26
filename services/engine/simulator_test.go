package engine

import (
	"math"
	"testing"
)

func TestSimBrokerNextOpenFill(t *testing.T) {
	b := NewSimBroker(SimConfig{InitialCash: 10000, Commission: 0.001})
	bars := barsFromCloses([]float64{10, 11, 12})
	bars[1].Open = 10.5

	if fills := b.Submit(Order{Side: TradeSideBuy, Size: 500}, bars[0]); fills != nil {
		t.Fatalf("next-open order filled immediately: %+v", fills)
	}
	fills := b.BeginBar(bars[1])
	if len(fills) != 1 || fills[0].Rejected || fills[0].Price != 10.5 {
		t.Fatalf("unexpected fills %+v", fills)
	}
	// 500 * 10.5 = 5250 plus 5.25 commission
	if math.Abs(b.Cash()-(10000-5250-5.25)) > 1e-9 {
		t.Fatalf("cash %v", b.Cash())
	}
	if size, avg := b.Position(); size != 500 || avg != 10.5 {
		t.Fatalf("position %d @ %v", size, avg)
	}
}

func TestSimBrokerRejectsWithoutCash(t *testing.T) {
	b := NewSimBroker(SimConfig{InitialCash: 1000, EntryMode: EntryModeSignalClose})
	bar := barsFromCloses([]float64{10})[0]
	fills := b.Submit(Order{Side: TradeSideBuy, Size: 200}, bar)
	if len(fills) != 1 || !fills[0].Rejected {
		t.Fatalf("expected rejection, got %+v", fills)
	}
	if b.Cash() != 1000 {
		t.Fatalf("cash changed on rejection: %v", b.Cash())
	}
}

func TestSimBrokerRoundTrip(t *testing.T) {
	b := NewSimBroker(SimConfig{InitialCash: 10000, Commission: 0.001, EntryMode: EntryModeSignalClose})
	bars := barsFromCloses([]float64{10, 12, 15})

	b.Submit(Order{Side: TradeSideBuy, Size: 300}, bars[0])
	b.Submit(Order{Side: TradeSideBuy, Size: 200, AddOn: true}, bars[1])
	b.Submit(Order{Side: TradeSideSell, Size: 500}, bars[2])

	trades := b.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected one closed trade, got %d", len(trades))
	}
	tr := trades[0]
	// avg 10.8, gross (15-10.8)*500 = 2100; fees 3 + 2.4 + 7.5
	if math.Abs(tr.GrossPnL-2100) > 1e-9 || math.Abs(tr.Commission-12.9) > 1e-9 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if math.Abs(tr.NetPnL-2087.1) > 1e-9 || tr.MaxSize != 500 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if math.Abs(b.Value(15)-(10000+2087.1)) > 1e-9 {
		t.Fatalf("value %v", b.Value(15))
	}
}
