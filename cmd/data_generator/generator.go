package main

import (
	"encoding/csv"
	"io"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// regime is a drift applied over a bar range.
type regime struct {
	from, to int
	drift    float64
}

var regimes = []regime{
	{100, 300, 0.002},
	{400, 600, -0.002},
	{700, 900, 0.001},
}

func driftAt(i int) float64 {
	for _, r := range regimes {
		if i > r.from && i < r.to {
			return r.drift
		}
	}
	return 0
}

// writeDaily writes n weekday bars starting at start. Prices are rounded to
// the cent the way exchange data is.
func writeDaily(w io.Writer, rng *rand.Rand, start time.Time, n int, price float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume", "Amount", "Pct_change"}); err != nil {
		return err
	}
	cent := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

	day := start
	prevClose := cent(price)
	for i := 0; i < n; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		open := prevClose
		change := (rng.Float64()-0.5)*0.04 + driftAt(i)
		closeP := cent(open.InexactFloat64() * (1 + change))
		if closeP.LessThan(decimal.NewFromFloat(0.5)) {
			closeP = decimal.NewFromFloat(0.5)
		}
		high := cent(decimal.Max(open, closeP).InexactFloat64() * (1 + rng.Float64()*0.01))
		low := cent(decimal.Min(open, closeP).InexactFloat64() * (1 - rng.Float64()*0.01))
		volume := decimal.NewFromInt(int64(100000 + rng.Intn(900000)))
		amount := volume.Mul(closeP).Round(2)
		pct := closeP.Sub(prevClose).Div(prevClose).Mul(decimal.NewFromInt(100)).Round(2)

		if err := cw.Write([]string{
			day.Format("2006-01-02"),
			open.StringFixed(2), high.StringFixed(2), low.StringFixed(2), closeP.StringFixed(2),
			volume.String(), amount.StringFixed(2), pct.StringFixed(2),
		}); err != nil {
			return err
		}
		prevClose = closeP
		day = day.AddDate(0, 0, 1)
	}
	cw.Flush()
	return cw.Error()
}
