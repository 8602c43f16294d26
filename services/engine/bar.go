package engine

import "time"

// Bar is a single daily OHLCV record. Amount and PctChange are optional
// fields some data providers leave out.
type Bar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    *float64  `json:"amount,omitempty"`
	PctChange *float64  `json:"pct_change,omitempty"`
}

// PriceSeries is a chronologically ordered run of bars for one symbol.
// The engine only reads it.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

func (s PriceSeries) Len() int    { return len(s.Bars) }
func (s PriceSeries) Empty() bool { return len(s.Bars) == 0 }

// Last returns the most recent bar.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Between returns the bars dated within [from, to]. A zero bound is open.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	out := PriceSeries{Symbol: s.Symbol}
	for _, b := range s.Bars {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// LatestTradingAmount is close*volume of the last bar, or the reported
// amount when the provider supplies one.
func (s PriceSeries) LatestTradingAmount() float64 {
	b, ok := s.Last()
	if !ok {
		return 0
	}
	if b.Amount != nil {
		return *b.Amount
	}
	return b.Close * b.Volume
}
