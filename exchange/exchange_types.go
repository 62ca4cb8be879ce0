package exchange

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNilBar is returned when an order is routed without market data
	ErrNilBar = errors.New("no bar to execute against")
	// ErrNilPortfolio is returned when an order is routed without a portfolio
	ErrNilPortfolio = errors.New("portfolio is nil")

	errNegativeRate = errors.New("rate cannot be negative")
)

// Simulator fills orders against historical bars, applying slippage and
// commission. A simulator holds no per-run state and may be shared by
// sequential runs of the same engine.
type Simulator struct {
	commissionRate decimal.Decimal
	slippage       decimal.Decimal
}
