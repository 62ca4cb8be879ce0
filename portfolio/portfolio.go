// Package portfolio implements cash and position accounting plus the
// append-only transaction journal a backtest run settles against.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/position"
)

// New returns a portfolio funded with initialCapital
func New(initialCapital decimal.Decimal) *Portfolio {
	p := &Portfolio{}
	p.Reset(initialCapital)
	return p
}

// Reset restores the portfolio to a fresh state with the supplied capital,
// dropping all positions and journal entries
func (p *Portfolio) Reset(initialCapital decimal.Decimal) {
	p.initialCapital = initialCapital
	p.cash = initialCapital
	p.positions = make(map[string]*position.Position)
	p.transactions = nil
}

// SetAllowShorts toggles the internal hook permitting net negative
// positions. It is off by default; shipped configurations are long only.
func (p *Portfolio) SetAllowShorts(allow bool) {
	p.allowShorts = allow
}

// InitialCapital returns the capital the portfolio was last reset with
func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

// Cash returns the uninvested balance
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// HasPosition reports whether an open position exists for the symbol
func (p *Portfolio) HasPosition(symbol string) bool {
	_, ok := p.positions[symbol]
	return ok
}

// Position returns the open position for the symbol, if any
func (p *Portfolio) Position(symbol string) (*position.Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns the open positions ordered by symbol so that callers
// iterate deterministically
func (p *Portfolio) Positions() []*position.Position {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	out := make([]*position.Position, len(symbols))
	for i := range symbols {
		out[i] = p.positions[symbols[i]]
	}
	return out
}

// Transactions returns a copy of the journal in append order
func (p *Portfolio) Transactions() []Transaction {
	out := make([]Transaction, len(p.transactions))
	copy(out, p.transactions)
	return out
}

// TotalValue returns cash plus the marked value of every open position
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.Value())
	}
	return total
}

// UpdatePosition settles a fill of deltaQuantity at price, debiting the
// commission. Buys debit notional from cash and fail when cash is
// insufficient, unless the fill reduces or closes a short. Sells credit
// notional; a sell that would take the net position negative is rejected
// while shorts are disabled. A false return leaves the portfolio untouched.
// On success a journal entry is appended and a position whose quantity
// reached zero is removed.
func (p *Portfolio) UpdatePosition(ts time.Time, symbol string, deltaQuantity, price, commission decimal.Decimal) bool {
	if deltaQuantity.IsZero() || price.LessThanOrEqual(decimal.Zero) || commission.IsNegative() {
		return false
	}

	pos, exists := p.positions[symbol]
	var currentQuantity decimal.Decimal
	if exists {
		currentQuantity = pos.Quantity()
	}

	if deltaQuantity.IsPositive() {
		required := deltaQuantity.Mul(price).Add(commission)
		reducing := exists && currentQuantity.IsNegative()
		if !reducing && p.cash.LessThan(required) {
			return false
		}
	}
	newQuantity := currentQuantity.Add(deltaQuantity)
	if newQuantity.IsNegative() && !p.allowShorts {
		return false
	}

	if deltaQuantity.IsPositive() {
		p.cash = p.cash.Sub(deltaQuantity.Mul(price))
	} else {
		p.cash = p.cash.Add(deltaQuantity.Abs().Mul(price))
	}
	p.cash = p.cash.Sub(commission)

	if exists {
		pos.Update(deltaQuantity, price)
	} else {
		pos = position.New(symbol, deltaQuantity, price, nil)
		p.positions[symbol] = pos
	}
	if pos.Quantity().IsZero() {
		delete(p.positions, symbol)
	}

	p.transactions = append(p.transactions, Transaction{
		Timestamp:  ts,
		Symbol:     symbol,
		Quantity:   deltaQuantity,
		Price:      price,
		Commission: commission,
	})
	return true
}

// LastTransactionBefore skips the journal's final entry and walks backwards
// from there for the most recent entry of the symbol, so called right after
// a closing fill it finds the entry that preceded it. It remains as a
// fallback for positions without an originating order reference.
func (p *Portfolio) LastTransactionBefore(symbol string) (Transaction, bool) {
	for i := len(p.transactions) - 2; i >= 0; i-- {
		if p.transactions[i].Symbol == symbol {
			return p.transactions[i], true
		}
	}
	return Transaction{}, false
}

// Duration returns how long the round trip was held
func (t *Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// String implements the stringer interface
func (t *Trade) String() string {
	side := "SHORT"
	if t.IsLong {
		side = "LONG"
	}
	suffix := ""
	if t.StopLossHit {
		suffix = " STOP LOSS"
	}
	if t.TakeProfitHit {
		suffix = " TAKE PROFIT"
	}
	return fmt.Sprintf("Trade{%s %s in:%v out:%v profit:%v (%v%%)%s}",
		t.Symbol, side, t.EntryPrice, t.ExitPrice, t.Profit, t.ProfitPercent.Round(2), suffix)
}
