package engine

import "fmt"

// SignalCode is the closed set of per-bar outputs of the signal engine.
type SignalCode int

const (
	SignalReduceWarning2 SignalCode = -3 // close slipped under the long stop, trend not yet reversed
	SignalReduceWarning  SignalCode = -2 // long trend, ZLSMA flat or falling
	SignalExit           SignalCode = -1
	SignalNone           SignalCode = 0
	SignalStrongEntry    SignalCode = 1
	SignalAddOn          SignalCode = 2
	SignalEntryWarning   SignalCode = 3 // close above the short stop but still under the long stop
)

func (c SignalCode) String() string {
	switch c {
	case SignalReduceWarning2:
		return "reduce_warning_2"
	case SignalReduceWarning:
		return "reduce_warning"
	case SignalExit:
		return "exit"
	case SignalNone:
		return "none"
	case SignalStrongEntry:
		return "strong_entry"
	case SignalAddOn:
		return "add_on"
	case SignalEntryWarning:
		return "entry_warning"
	}
	return fmt.Sprintf("signal(%d)", int(c))
}

// Valid reports whether c belongs to the closed signal domain.
func (c SignalCode) Valid() bool {
	return c >= SignalReduceWarning2 && c <= SignalEntryWarning
}

// Signal is a code plus a short human readable reason.
type Signal struct {
	Code   SignalCode `json:"code"`
	Reason string     `json:"reason"`
}

// Direction is the trend state the engine believes in.
type Direction int

const (
	DirectionNeutral Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	}
	return "neutral"
}
