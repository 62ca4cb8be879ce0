package position

import (
	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/order"
)

// Position is a signed holding of one instrument. A position with zero
// quantity is logically absent and is removed by the portfolio that owns it.
type Position struct {
	symbol           string
	quantity         decimal.Decimal
	avgPrice         decimal.Decimal
	currentPrice     decimal.Decimal
	originatingOrder *order.Order
}
