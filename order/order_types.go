package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSubmissionIsNil is returned when a nil order is routed for execution
	ErrSubmissionIsNil = errors.New("order submission is nil")
	// ErrZeroQuantity is returned when an order carries no quantity
	ErrZeroQuantity = errors.New("order quantity cannot be zero")
	// ErrInvalidTriggerPrice is returned when a limit or stop order carries a
	// non-positive trigger price
	ErrInvalidTriggerPrice = errors.New("trigger price must be positive")
	// ErrAlreadyExecuted is returned on a second execution attempt
	ErrAlreadyExecuted = errors.New("order already executed")

	errSymbolEmpty = errors.New("symbol unset")
)

// Type defines how an order interacts with a bar before filling
type Type uint8

// Supported order types
const (
	Market Type = iota
	Limit
	Stop
	StopLimit
)

// String implements the stringer interface
func (t Type) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	case StopLimit:
		return "STOP_LIMIT"
	}
	return "UNKNOWN"
}

// Order is a single instruction to buy (positive quantity) or sell
// (negative quantity) an instrument. An order mutates exactly once after
// construction, when it is executed; the execution fields are frozen from
// then on.
type Order struct {
	ID           int64
	Symbol       string
	Type         Type
	Quantity     decimal.Decimal
	CreationTime time.Time

	// Price is the trigger price for limit, stop and stop-limit orders. It
	// is unused for market orders.
	Price decimal.Decimal

	// StopLossPrice and TakeProfitPrice attach exit levels to the position
	// this order opens. A zero value means the level is unset.
	StopLossPrice   decimal.Decimal
	TakeProfitPrice decimal.Decimal

	executed       bool
	executionTime  time.Time
	executionPrice decimal.Decimal
}
