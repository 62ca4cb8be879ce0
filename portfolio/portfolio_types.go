package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/position"
)

// Transaction is one journal entry recording a fill. Entries are append
// only and never mutated after being written.
type Transaction struct {
	Timestamp  time.Time
	Symbol     string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
}

// Trade is a closed round trip, materialized at the moment a position
// closes and immutable afterwards. It is the unit of P&L attribution.
type Trade struct {
	Symbol        string
	EntryTime     time.Time
	EntryPrice    decimal.Decimal
	EntryQuantity decimal.Decimal
	ExitTime      time.Time
	ExitPrice     decimal.Decimal
	ExitQuantity  decimal.Decimal
	Commission    decimal.Decimal
	Profit        decimal.Decimal
	ProfitPercent decimal.Decimal
	IsLong        bool
	StopLossHit   bool
	TakeProfitHit bool

	// CapitalAfterTrade is the portfolio's total value immediately after the
	// closing fill settled
	CapitalAfterTrade decimal.Decimal

	EntryOrder *order.Order
	ExitOrder  *order.Order
}

// Portfolio tracks cash, open positions and the transaction journal for a
// single backtest run. It is owned by one engine and must not be mutated
// concurrently.
type Portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*position.Position
	transactions   []Transaction
	allowShorts    bool
}
