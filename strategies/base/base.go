// Package base carries the plumbing shared by the bundled strategies:
// symbol bookkeeping, parameter coercion and order construction helpers.
package base

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
)

// ErrInvalidCustomSettings is returned when a parameter value cannot be
// applied
var ErrInvalidCustomSettings = errors.New("invalid custom settings")

// Strategy is the embeddable base for bundled strategies
type Strategy struct {
	symbol       string
	allowShorts  bool
	PositionSize float64
}

// SetSymbol records the traded instrument
func (s *Strategy) SetSymbol(symbol string) {
	s.symbol = symbol
}

// Symbol returns the traded instrument
func (s *Strategy) Symbol() string {
	return s.symbol
}

// RequiredSymbols lists the single symbol the strategy trades
func (s *Strategy) RequiredSymbols() []string {
	return []string{s.symbol}
}

// SetAllowShorts toggles the disabled-by-default short-selling branches
func (s *Strategy) SetAllowShorts(allow bool) {
	s.allowShorts = allow
}

// AllowShorts reports whether short entries may be generated
func (s *Strategy) AllowShorts() bool {
	return s.allowShorts
}

// SizedQuantity converts a fraction of portfolio value into a whole number
// of units at price, zero when price is not positive
func (s *Strategy) SizedQuantity(pf *portfolio.Portfolio, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || s.PositionSize <= 0 {
		return decimal.Zero
	}
	value := pf.TotalValue().Mul(decimal.NewFromFloat(s.PositionSize))
	return value.Div(price).Floor()
}

// MarketExit returns an order flattening the symbol's open position, or nil
// when no position exists
func (s *Strategy) MarketExit(pf *portfolio.Portfolio, ts time.Time) *order.Order {
	pos, ok := pf.Position(s.symbol)
	if !ok {
		return nil
	}
	exit, err := order.New(s.symbol, pos.Quantity().Neg(), ts)
	if err != nil {
		return nil
	}
	return exit
}

// MarketEntry returns a sized market order with optional percentage
// stop-loss and take-profit levels anchored to price
func (s *Strategy) MarketEntry(pf *portfolio.Portfolio, ts time.Time, price decimal.Decimal, stopLossPercent, takeProfitPercent float64) *order.Order {
	quantity := s.SizedQuantity(pf, price)
	if quantity.IsZero() {
		return nil
	}
	entry, err := order.New(s.symbol, quantity, ts)
	if err != nil {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	if stopLossPercent > 0 {
		entry.StopLossPrice = price.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(stopLossPercent).Div(hundred)))
	}
	if takeProfitPercent > 0 {
		entry.TakeProfitPrice = price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(takeProfitPercent).Div(hundred)))
	}
	return entry
}

// ToInt coerces a parameter value to int
func ToInt(name string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidCustomSettings, name, value)
}

// ToFloat coerces a parameter value to float64
func ToFloat(name string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: %s=%v is not a number", ErrInvalidCustomSettings, name, value)
}

// ToBool coerces a parameter value to bool
func ToBool(name string, value any) (bool, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return false, fmt.Errorf("%w: %s=%v is not a boolean", ErrInvalidCustomSettings, name, value)
}
