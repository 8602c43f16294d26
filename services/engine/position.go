package engine

import "github.com/shopspring/decimal"

// Position is the sizing view of what the account holds.
type Position struct {
	Size         int64   `json:"size"`
	EntryPrice   float64 `json:"entry_price"`
	PyramidCount int     `json:"pyramid_count"`
}

func (p Position) Flat() bool { return p.Size == 0 }

// AccountPosition is the broker's long-only book for one symbol.
type AccountPosition struct {
	Quantity    int64
	AvgPrice    decimal.Decimal
	RealizedPnl decimal.Decimal
}

// ApplyFill updates the position with a new fill and returns the realized
// gross PnL of the fill. Sells never take the book below zero.
func (p *AccountPosition) ApplyFill(side TradeSide, price decimal.Decimal, qty int64) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	if side == TradeSideBuy {
		p.AvgPrice = weightedAvg(p.AvgPrice, p.Quantity, price, qty)
		p.Quantity += qty
		return decimal.Zero
	}

	if qty > p.Quantity {
		qty = p.Quantity
	}
	realized := price.Sub(p.AvgPrice).Mul(decimal.NewFromInt(qty))
	p.RealizedPnl = p.RealizedPnl.Add(realized)
	p.Quantity -= qty
	if p.Quantity == 0 {
		p.AvgPrice = decimal.Zero
	}
	return realized
}

func weightedAvg(p1 decimal.Decimal, q1 int64, p2 decimal.Decimal, q2 int64) decimal.Decimal {
	total := q1 + q2
	if total == 0 {
		return decimal.Zero
	}
	num := p1.Mul(decimal.NewFromInt(q1)).Add(p2.Mul(decimal.NewFromInt(q2)))
	return num.Div(decimal.NewFromInt(total))
}
