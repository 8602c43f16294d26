package engine

import "math"

// StopState carries the ratcheted Chandelier Exit levels of one bar.
type StopState struct {
	LongStop  float64 `json:"long_stop"`
	ShortStop float64 `json:"short_stop"`
	Ready     bool    `json:"ready"`
}

// StopCandidates returns the raw stops before the ratchet:
// highest - mult*atr and lowest + mult*atr.
func StopCandidates(snap IndicatorSnapshot, mult float64) (long, short float64) {
	return snap.RollingHigh - mult*snap.ATR, snap.RollingLow + mult*snap.ATR
}

// NextStops advances the stops by one bar. While the previous close stayed
// above the previous long stop the long stop cannot fall; while it stayed
// below the previous short stop the short stop cannot rise. Otherwise the
// level resets to its candidate.
func NextStops(prev StopState, prevClose float64, snap IndicatorSnapshot, mult float64) StopState {
	if !snap.Ready {
		return StopState{}
	}
	longCand, shortCand := StopCandidates(snap, mult)
	next := StopState{LongStop: longCand, ShortStop: shortCand, Ready: true}
	if !prev.Ready {
		return next
	}
	if prevClose > prev.LongStop {
		next.LongStop = math.Max(longCand, prev.LongStop)
	}
	if prevClose < prev.ShortStop {
		next.ShortStop = math.Min(shortCand, prev.ShortStop)
	}
	return next
}
