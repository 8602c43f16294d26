package engine

import "time"

type TradeSide int

const (
	TradeSideBuy TradeSide = iota
	TradeSideSell
)

func (s TradeSide) String() string {
	if s == TradeSideSell {
		return "sell"
	}
	return "buy"
}

// EntryMode defines when a submitted order is filled.
type EntryMode int

const (
	EntryModeNextBarOpen EntryMode = iota // fill at the next bar's open (default)
	EntryModeSignalClose                  // fill at the signal bar's close
)

func (m EntryMode) String() string {
	if m == EntryModeSignalClose {
		return "signal_close"
	}
	return "next_open"
}

// ParseEntryMode accepts "next_open" or "signal_close". Anything else maps
// to next_open.
func ParseEntryMode(s string) EntryMode {
	if s == "signal_close" {
		return EntryModeSignalClose
	}
	return EntryModeNextBarOpen
}

// Order is a market order in whole shares.
type Order struct {
	Side   TradeSide `json:"side"`
	Size   int64     `json:"size"`
	AddOn  bool      `json:"add_on"`
	Reason string    `json:"reason"`
	Placed time.Time `json:"placed"`
}

// Fill is the outcome of an order. Rejected fills carry no size.
type Fill struct {
	Order      Order     `json:"order"`
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
	Size       int64     `json:"size"`
	Commission float64   `json:"commission"`
	Rejected   bool      `json:"rejected"`
	Reason     string    `json:"reason,omitempty"`
}
