// Package order defines the order primitive routed through the execution
// simulator.
package order

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

var idCounter int64

// nextID issues process-unique, monotonically increasing order IDs
func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// New returns a market order for the signed quantity
func New(symbol string, quantity decimal.Decimal, creationTime time.Time) (*Order, error) {
	return NewTriggered(symbol, Market, quantity, decimal.Zero, creationTime)
}

// NewTriggered returns an order of the given type. Limit, stop and
// stop-limit orders require a positive trigger price.
func NewTriggered(symbol string, orderType Type, quantity, triggerPrice decimal.Decimal, creationTime time.Time) (*Order, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w for new order", errSymbolEmpty)
	}
	if quantity.IsZero() {
		return nil, fmt.Errorf("%w: %q", ErrZeroQuantity, symbol)
	}
	if orderType != Market && triggerPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %v for %v order", ErrInvalidTriggerPrice, triggerPrice, orderType)
	}
	return &Order{
		ID:           nextID(),
		Symbol:       symbol,
		Type:         orderType,
		Quantity:     quantity,
		Price:        triggerPrice,
		CreationTime: creationTime,
	}, nil
}

// Execute stamps the fill onto the order. Executing twice is a programming
// error and is rejected.
func (o *Order) Execute(executionTime time.Time, executionPrice decimal.Decimal) error {
	if o.executed {
		return fmt.Errorf("%w: id %d", ErrAlreadyExecuted, o.ID)
	}
	o.executed = true
	o.executionTime = executionTime
	o.executionPrice = executionPrice
	return nil
}

// IsBuy reports whether the order increases exposure
func (o *Order) IsBuy() bool {
	return o.Quantity.IsPositive()
}

// IsSell reports whether the order decreases exposure
func (o *Order) IsSell() bool {
	return o.Quantity.IsNegative()
}

// HasStopLoss reports whether a stop-loss level is attached
func (o *Order) HasStopLoss() bool {
	return o.StopLossPrice.IsPositive()
}

// HasTakeProfit reports whether a take-profit level is attached
func (o *Order) HasTakeProfit() bool {
	return o.TakeProfitPrice.IsPositive()
}

// IsExecuted reports whether the order has been filled
func (o *Order) IsExecuted() bool {
	return o.executed
}

// ExecutionTime returns the fill time, zero until executed
func (o *Order) ExecutionTime() time.Time {
	return o.executionTime
}

// ExecutionPrice returns the fill price, zero until executed
func (o *Order) ExecutionPrice() decimal.Decimal {
	return o.executionPrice
}

// AbsQuantity returns the unsigned order quantity
func (o *Order) AbsQuantity() decimal.Decimal {
	return o.Quantity.Abs()
}

// String implements the stringer interface
func (o *Order) String() string {
	side := "SELL"
	if o.IsBuy() {
		side = "BUY"
	}
	if o.executed {
		return fmt.Sprintf("Order{%d %s %s %v %s @ %v}",
			o.ID, o.Symbol, side, o.Quantity.Abs(), o.Type, o.executionPrice)
	}
	return fmt.Sprintf("Order{%d %s %s %v %s}",
		o.ID, o.Symbol, side, o.Quantity.Abs(), o.Type)
}
