package engine

import "github.com/shopspring/decimal"

// Commission and lot constraints of the simulated exchange

type FeeModel interface {
	Compute(side TradeSide, price decimal.Decimal, qty int64) decimal.Decimal
}

// PercentFeeModel charges a flat fraction of notional on both sides.
type PercentFeeModel struct{ Rate decimal.Decimal }

func (m PercentFeeModel) Compute(_ TradeSide, price decimal.Decimal, qty int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(qty)).Mul(m.Rate)
}

// floorToLot rounds qty down to a whole number of lots. Quantities under one
// lot become zero.
func floorToLot(qty, lot int64) int64 {
	if lot <= 1 {
		if qty < 0 {
			return 0
		}
		return qty
	}
	if qty < lot {
		return 0
	}
	return (qty / lot) * lot
}
