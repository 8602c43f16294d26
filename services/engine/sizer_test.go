package engine

import "testing"

func TestEntryRoundsDownToLot(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 0.8, MaxPyramiding: 2, MinTradeUnit: 100}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalStrongEntry}, Cash: 100000, Price: 37.5})
	// 80000 / 37.5 = 2133.3 shares, floored to 2100
	if d.Action != ActionBuy || d.Size != 2100 || d.AddOn {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestEntryBelowOneLotHolds(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 0.5, MaxPyramiding: 0, MinTradeUnit: 100}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalStrongEntry}, Cash: 1000, Price: 50})
	if d.Action != ActionHold || d.Reason != "insufficient capital" {
		t.Fatalf("expected insufficient capital hold, got %+v", d)
	}
}

func TestAddOnSplitsRemainingSlots(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 1, MaxPyramiding: 3, MinTradeUnit: 100}
	pos := Position{Size: 1000, EntryPrice: 10, PyramidCount: 1}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalAddOn}, Cash: 30000, Price: 10, Position: pos})
	// 30000 / 2 remaining slots / 10 = 1500
	if d.Action != ActionBuy || d.Size != 1500 || !d.AddOn {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestAddOnRespectsPyramidLimit(t *testing.T) {
	for max := 0; max <= 3; max++ {
		s := PositionSizer{InvestmentFraction: 1, MaxPyramiding: max, MinTradeUnit: 1}
		pos := Position{Size: 100, PyramidCount: max}
		d := s.Decide(SizingInput{Signal: Signal{Code: SignalAddOn}, Cash: 1e6, Price: 10, Position: pos})
		if d.Action != ActionHold {
			t.Fatalf("max %d: add-on beyond limit: %+v", max, d)
		}
	}
}

func TestAddOnWhileFlatReenters(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 0.5, MaxPyramiding: 0, MinTradeUnit: 100}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalAddOn}, Cash: 100000, Price: 20})
	if d.Action != ActionBuy || d.AddOn || d.Size != 2500 {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestExitClosesWholePosition(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 1, MinTradeUnit: 100}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalExit}, Cash: 10, Price: 10, Position: Position{Size: 700}})
	if d.Action != ActionSell || d.Size != 700 {
		t.Fatalf("unexpected decision %+v", d)
	}
	if d := s.Decide(SizingInput{Signal: Signal{Code: SignalExit}, Price: 10}); d.Action != ActionHold {
		t.Fatalf("exit while flat should hold, got %+v", d)
	}
}

func TestReduceWarningClosesWholePosition(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 1, MaxPyramiding: 3, MinTradeUnit: 100}
	pos := Position{Size: 500, EntryPrice: 9, PyramidCount: 1}
	d := s.Decide(SizingInput{Signal: Signal{Code: SignalReduceWarning}, Cash: 1000, Price: 10, Position: pos})
	if d.Action != ActionSell || d.Size != 500 {
		t.Fatalf("unexpected decision %+v", d)
	}
	if d := s.Decide(SizingInput{Signal: Signal{Code: SignalReduceWarning}, Cash: 1000, Price: 10}); d.Action != ActionHold {
		t.Fatalf("reduce warning while flat should hold, got %+v", d)
	}
}

func TestSoftWarningsNeverTrade(t *testing.T) {
	s := PositionSizer{InvestmentFraction: 1, MaxPyramiding: 3, MinTradeUnit: 1}
	for _, code := range []SignalCode{SignalReduceWarning2, SignalEntryWarning, SignalNone} {
		for _, pos := range []Position{{}, {Size: 100, PyramidCount: 1}} {
			d := s.Decide(SizingInput{Signal: Signal{Code: code}, Cash: 1e6, Price: 10, Position: pos})
			if d.Action != ActionHold {
				t.Fatalf("%v with %+v traded: %+v", code, pos, d)
			}
		}
	}
}

func TestFloorToLot(t *testing.T) {
	cases := []struct{ qty, lot, want int64 }{
		{2133, 100, 2100},
		{99, 100, 0},
		{100, 100, 100},
		{7, 1, 7},
		{-5, 1, 0},
	}
	for _, c := range cases {
		if got := floorToLot(c.qty, c.lot); got != c.want {
			t.Fatalf("floorToLot(%d, %d) = %d, want %d", c.qty, c.lot, got, c.want)
		}
	}
}
