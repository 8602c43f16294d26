package engine

// EngineState is the signal engine's memory between bars. It is a value:
// Step returns a new state and never mutates its argument.
type EngineState struct {
	Direction Direction `json:"direction"`
	Stops     StopState `json:"stops"`
	PrevClose float64   `json:"prev_close"`
	PrevZLSMA float64   `json:"prev_zlsma"`
	Bars      int       `json:"bars"`
}

// StepInput is what the engine sees of one bar.
type StepInput struct {
	Close    float64
	Snapshot IndicatorSnapshot
}

// SignalModel is the single contract every strategy implements.
type SignalModel interface {
	Step(state EngineState, in StepInput) (EngineState, Signal)
}

// ChandelierZLSMA combines Chandelier Exit trend flips with ZLSMA
// confirmation.
type ChandelierZLSMA struct {
	Mult float64
}

var _ SignalModel = ChandelierZLSMA{}

func (m ChandelierZLSMA) Step(state EngineState, in StepInput) (EngineState, Signal) {
	return Step(state, in, m.Mult)
}

// Step advances the engine by one bar. Signals are withheld until both the
// current snapshot and the previous bar's stops exist.
func Step(state EngineState, in StepInput, mult float64) (EngineState, Signal) {
	next := state
	next.Bars++
	next.PrevClose = in.Close

	if !in.Snapshot.Ready {
		next.Stops = StopState{}
		return next, Signal{Code: SignalNone, Reason: "indicator warm-up"}
	}

	next.Stops = NextStops(state.Stops, state.PrevClose, in.Snapshot, mult)
	next.PrevZLSMA = in.Snapshot.ZLSMA
	if !state.Stops.Ready {
		return next, Signal{Code: SignalNone, Reason: "stops initialising"}
	}

	prevLong, prevShort := state.Stops.LongStop, state.Stops.ShortStop
	close := in.Close
	cur := state.Direction
	dir := cur

	aboveShort := close > prevShort
	aboveLong := close > prevLong
	belowLong := close < prevLong

	switch {
	case aboveShort && aboveLong:
		dir = DirectionLong
	case aboveShort && belowLong && cur == DirectionLong:
		return next, Signal{Code: SignalReduceWarning2, Reason: "close below long stop, above short stop"}
	case aboveShort && cur != DirectionLong:
		return next, Signal{Code: SignalEntryWarning, Reason: "close above short stop, below long stop"}
	case belowLong:
		dir = DirectionShort
	}
	next.Direction = dir

	switch {
	case dir == DirectionLong && cur != DirectionLong:
		if close > in.Snapshot.ZLSMA {
			return next, Signal{Code: SignalStrongEntry, Reason: "trend flipped long, close above zlsma"}
		}
		return next, Signal{Code: SignalNone, Reason: "trend flipped long without zlsma confirmation"}
	case dir == DirectionShort && cur == DirectionLong:
		return next, Signal{Code: SignalExit, Reason: "trend flipped short"}
	case dir == DirectionLong:
		if in.Snapshot.ZLSMA > state.PrevZLSMA {
			return next, Signal{Code: SignalAddOn, Reason: "long trend, zlsma rising"}
		}
		return next, Signal{Code: SignalReduceWarning, Reason: "long trend, zlsma flat or falling"}
	}
	return next, Signal{Code: SignalNone, Reason: "no change"}
}
