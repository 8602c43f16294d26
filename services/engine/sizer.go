package engine

import (
	"fmt"
	"math"
)

type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	}
	return "hold"
}

// SizingInput is the account view the sizer decides on.
type SizingInput struct {
	Signal   Signal
	Cash     float64
	Price    float64
	Position Position
}

type SizingDecision struct {
	Action Action `json:"action"`
	Size   int64  `json:"size"`
	AddOn  bool   `json:"add_on"`
	Reason string `json:"reason"`
}

// PositionSizer turns signals into orders in whole lots.
type PositionSizer struct {
	InvestmentFraction float64
	MaxPyramiding      int
	MinTradeUnit       int64
}

func hold(reason string) SizingDecision { return SizingDecision{Action: ActionHold, Reason: reason} }

// Decide maps a signal to a trade. Exit and ReduceWarning close the whole
// position; ReduceWarning2 and EntryWarning are reported and never trade.
func (s PositionSizer) Decide(in SizingInput) SizingDecision {
	switch in.Signal.Code {
	case SignalStrongEntry:
		if !in.Position.Flat() {
			return hold("already positioned")
		}
		return s.buy(in.Cash*s.InvestmentFraction, in.Price, false, "entry")

	case SignalAddOn:
		// An add-on signal while flat inside a long trend re-enters.
		if in.Position.Flat() {
			return s.buy(in.Cash*s.InvestmentFraction, in.Price, false, "re-entry on add-on signal")
		}
		if in.Position.PyramidCount >= s.MaxPyramiding {
			return hold("pyramiding limit reached")
		}
		slots := s.MaxPyramiding - in.Position.PyramidCount
		if slots < 1 {
			slots = 1
		}
		notional := in.Cash * s.InvestmentFraction / float64(slots)
		return s.buy(notional, in.Price, true, fmt.Sprintf("add-on %d/%d", in.Position.PyramidCount+1, s.MaxPyramiding))

	case SignalExit:
		if in.Position.Flat() {
			return hold("exit signal while flat")
		}
		return SizingDecision{Action: ActionSell, Size: in.Position.Size, Reason: "exit"}

	case SignalReduceWarning:
		if in.Position.Flat() {
			return hold("reduce warning while flat")
		}
		return SizingDecision{Action: ActionSell, Size: in.Position.Size, Reason: "reduce warning"}
	}
	return hold(in.Signal.Code.String())
}

func (s PositionSizer) buy(notional, price float64, addOn bool, reason string) SizingDecision {
	if price <= 0 || math.IsNaN(price) || notional <= 0 {
		return hold("insufficient capital")
	}
	size := floorToLot(int64(math.Floor(notional/price)), s.MinTradeUnit)
	if size < s.MinTradeUnit || size == 0 {
		return hold("insufficient capital")
	}
	return SizingDecision{Action: ActionBuy, Size: size, AddOn: addOn, Reason: reason}
}
