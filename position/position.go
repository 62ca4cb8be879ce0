// Package position implements average-cost accounting for a single
// instrument holding.
package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/order"
)

// New returns a position seeded with an opening fill. The originating order
// may be nil when the position is synthesized outside the execution path.
func New(symbol string, quantity, fillPrice decimal.Decimal, o *order.Order) *Position {
	return &Position{
		symbol:           symbol,
		quantity:         quantity,
		avgPrice:         fillPrice,
		currentPrice:     fillPrice,
		originatingOrder: o,
	}
}

// Update applies a fill of deltaQuantity at fillPrice. The outcome depends
// on the relation between the current quantity and the delta:
//
//	zero delta                      -> no-op
//	same side, or currently flat    -> scale in, average price reweighted
//	opposite side, |delta| < |qty|  -> reduce, average price preserved
//	opposite side, |delta| = |qty|  -> close, average price set to the fill
//	opposite side, |delta| > |qty|  -> reverse, average price set to the fill
//
// The tracked current price follows the fill price on every non-trivial
// update.
func (p *Position) Update(deltaQuantity, fillPrice decimal.Decimal) {
	if deltaQuantity.IsZero() {
		return
	}

	newQuantity := p.quantity.Add(deltaQuantity)
	switch {
	case p.quantity.IsZero() || p.quantity.Sign() == deltaQuantity.Sign():
		// scale in
		totalCost := p.quantity.Abs().Mul(p.avgPrice).Add(deltaQuantity.Abs().Mul(fillPrice))
		totalQuantity := p.quantity.Abs().Add(deltaQuantity.Abs())
		p.avgPrice = totalCost.Div(totalQuantity)
	case deltaQuantity.Abs().GreaterThanOrEqual(p.quantity.Abs()):
		// close or reverse
		p.avgPrice = fillPrice
	default:
		// reduce, entry price stays
	}
	p.quantity = newQuantity
	p.currentPrice = fillPrice
}

// Symbol returns the instrument held
func (p *Position) Symbol() string {
	return p.symbol
}

// Quantity returns the signed holding size
func (p *Position) Quantity() decimal.Decimal {
	return p.quantity
}

// AvgPrice returns the average entry price of the open quantity
func (p *Position) AvgPrice() decimal.Decimal {
	return p.avgPrice
}

// CurrentPrice returns the price the position was last marked at
func (p *Position) CurrentPrice() decimal.Decimal {
	return p.currentPrice
}

// SetCurrentPrice marks the position to price without trading
func (p *Position) SetCurrentPrice(price decimal.Decimal) {
	p.currentPrice = price
}

// Value returns quantity multiplied by the current price
func (p *Position) Value() decimal.Decimal {
	return p.quantity.Mul(p.currentPrice)
}

// UnrealizedPnL returns the open profit at the current price
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.currentPrice.Sub(p.avgPrice).Mul(p.quantity)
}

// UnrealizedPnLPercent returns the open profit relative to the entry price
func (p *Position) UnrealizedPnLPercent() decimal.Decimal {
	if p.avgPrice.IsZero() {
		return decimal.Zero
	}
	pct := p.currentPrice.Sub(p.avgPrice).Div(p.avgPrice).Mul(decimal.NewFromInt(100))
	if p.quantity.IsNegative() {
		return pct.Neg()
	}
	return pct
}

// IsLong reports whether the holding is positive
func (p *Position) IsLong() bool {
	return p.quantity.IsPositive()
}

// IsShort reports whether the holding is negative
func (p *Position) IsShort() bool {
	return p.quantity.IsNegative()
}

// OriginatingOrder returns the order that opened the position, if tracked
func (p *Position) OriginatingOrder() *order.Order {
	return p.originatingOrder
}

// SetOriginatingOrder records the order that opened the position
func (p *Position) SetOriginatingOrder(o *order.Order) {
	p.originatingOrder = o
}

// String implements the stringer interface
func (p *Position) String() string {
	return fmt.Sprintf("Position{%s qty:%v avg:%v mark:%v pnl:%v}",
		p.symbol, p.quantity, p.avgPrice, p.currentPrice, p.UnrealizedPnL())
}
