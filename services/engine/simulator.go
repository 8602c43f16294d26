package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionEngine is the broker the evaluator trades against.
type ExecutionEngine interface {
	// BeginBar fills orders queued on the previous bar at this bar's open.
	BeginBar(bar Bar) []Fill
	// Submit queues or fills an order depending on the entry mode.
	Submit(order Order, bar Bar) []Fill
	Cash() float64
	// Value is cash plus the position marked at price.
	Value(price float64) float64
	Position() (size int64, avgPrice float64)
	ClosedTrades() []ClosedTrade
}

// ClosedTrade is one round trip from flat back to flat.
type ClosedTrade struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	MaxSize    int64     `json:"max_size"`
	GrossPnL   float64   `json:"gross_pnl"`
	Commission float64   `json:"commission"`
	NetPnL     float64   `json:"net_pnl"`
}

type SimConfig struct {
	InitialCash float64
	Commission  float64 // fraction of notional per side
	EntryMode   EntryMode
}

// SimBroker is a long-only cash account with percentage commission.
type SimBroker struct {
	cfg     SimConfig
	cash    decimal.Decimal
	fees    FeeModel
	pos     AccountPosition
	pending []Order
	open    *openTrade
	closed  []ClosedTrade
}

type openTrade struct {
	entry      time.Time
	maxSize    int64
	gross      decimal.Decimal
	commission decimal.Decimal
}

var _ ExecutionEngine = (*SimBroker)(nil)

func NewSimBroker(cfg SimConfig) *SimBroker {
	return &SimBroker{
		cfg:  cfg,
		cash: decimal.NewFromFloat(cfg.InitialCash),
		fees: PercentFeeModel{Rate: decimal.NewFromFloat(cfg.Commission)},
	}
}

func (b *SimBroker) BeginBar(bar Bar) []Fill {
	if len(b.pending) == 0 {
		return nil
	}
	fills := make([]Fill, 0, len(b.pending))
	for _, o := range b.pending {
		fills = append(fills, b.execute(o, bar.Open, bar.Date))
	}
	b.pending = b.pending[:0]
	return fills
}

func (b *SimBroker) Submit(order Order, bar Bar) []Fill {
	if order.Placed.IsZero() {
		order.Placed = bar.Date
	}
	if b.cfg.EntryMode == EntryModeSignalClose {
		return []Fill{b.execute(order, bar.Close, bar.Date)}
	}
	b.pending = append(b.pending, order)
	return nil
}

func (b *SimBroker) execute(o Order, price float64, date time.Time) Fill {
	f := Fill{Order: o, Date: date, Price: price}
	if o.Size <= 0 || price <= 0 {
		f.Rejected, f.Reason = true, "invalid order"
		return f
	}
	px := decimal.NewFromFloat(price)

	if o.Side == TradeSideBuy {
		cost := px.Mul(decimal.NewFromInt(o.Size))
		fee := b.fees.Compute(o.Side, px, o.Size)
		if cost.Add(fee).GreaterThan(b.cash) {
			f.Rejected, f.Reason = true, "insufficient cash"
			return f
		}
		b.cash = b.cash.Sub(cost).Sub(fee)
		if b.pos.Quantity == 0 {
			b.open = &openTrade{entry: date}
		}
		b.pos.ApplyFill(o.Side, px, o.Size)
		b.open.commission = b.open.commission.Add(fee)
		if b.pos.Quantity > b.open.maxSize {
			b.open.maxSize = b.pos.Quantity
		}
		f.Size = o.Size
		f.Commission = fee.InexactFloat64()
		return f
	}

	size := o.Size
	if size > b.pos.Quantity {
		size = b.pos.Quantity
	}
	if size == 0 {
		f.Rejected, f.Reason = true, "no position"
		return f
	}
	fee := b.fees.Compute(o.Side, px, size)
	b.cash = b.cash.Add(px.Mul(decimal.NewFromInt(size))).Sub(fee)
	realized := b.pos.ApplyFill(o.Side, px, size)
	b.open.gross = b.open.gross.Add(realized)
	b.open.commission = b.open.commission.Add(fee)
	if b.pos.Quantity == 0 {
		b.closed = append(b.closed, ClosedTrade{
			EntryDate:  b.open.entry,
			ExitDate:   date,
			MaxSize:    b.open.maxSize,
			GrossPnL:   b.open.gross.InexactFloat64(),
			Commission: b.open.commission.InexactFloat64(),
			NetPnL:     b.open.gross.Sub(b.open.commission).InexactFloat64(),
		})
		b.open = nil
	}
	f.Size = size
	f.Commission = fee.InexactFloat64()
	return f
}

func (b *SimBroker) Cash() float64 { return b.cash.InexactFloat64() }

func (b *SimBroker) Value(price float64) float64 {
	held := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(b.pos.Quantity))
	return b.cash.Add(held).InexactFloat64()
}

func (b *SimBroker) Position() (int64, float64) {
	return b.pos.Quantity, b.pos.AvgPrice.InexactFloat64()
}

func (b *SimBroker) ClosedTrades() []ClosedTrade {
	out := make([]ClosedTrade, len(b.closed))
	copy(out, b.closed)
	return out
}
