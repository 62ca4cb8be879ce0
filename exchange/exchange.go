// Package exchange simulates order execution against historical bars. The
// simulator decides whether an order fills within a bar, at what price
// after slippage, charges commission on the filled notional, settles the
// fill into the portfolio and emits a Trade when the fill closes a
// position.
package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
)

var one = decimal.NewFromInt(1)

// NewSimulator returns a simulator applying the supplied proportional
// commission rate and multiplicative slippage
func NewSimulator(commissionRate, slippage decimal.Decimal) (*Simulator, error) {
	if commissionRate.IsNegative() {
		return nil, fmt.Errorf("%w: commission %v", errNegativeRate, commissionRate)
	}
	if slippage.IsNegative() {
		return nil, fmt.Errorf("%w: slippage %v", errNegativeRate, slippage)
	}
	return &Simulator{commissionRate: commissionRate, slippage: slippage}, nil
}

// SetCommissionRate adjusts the proportional commission applied to fills
func (s *Simulator) SetCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return fmt.Errorf("%w: commission %v", errNegativeRate, rate)
	}
	s.commissionRate = rate
	return nil
}

// SetSlippage adjusts the multiplicative price slippage applied to fills
func (s *Simulator) SetSlippage(slippage decimal.Decimal) error {
	if slippage.IsNegative() {
		return fmt.Errorf("%w: slippage %v", errNegativeRate, slippage)
	}
	s.slippage = slippage
	return nil
}

// ExecuteOrder attempts to fill o against bar on behalf of pf. A nil trade
// with a nil error means the order did not fill this bar, which is not an
// error: the trigger was not touched, or the portfolio rejected the fill
// (insufficient cash, or a sell that would open a short). A non-nil trade
// is returned only when the fill closed a position.
func (s *Simulator) ExecuteOrder(o *order.Order, bar kline.Bar, pf *portfolio.Portfolio) (*portfolio.Trade, error) {
	if o == nil {
		return nil, order.ErrSubmissionIsNil
	}
	if pf == nil {
		return nil, ErrNilPortfolio
	}
	if bar.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w for order %d", ErrNilBar, o.ID)
	}

	basePrice, filled := fillPrice(o, bar)
	if !filled {
		return nil, nil
	}

	var executionPrice decimal.Decimal
	if o.IsBuy() {
		executionPrice = basePrice.Mul(one.Add(s.slippage))
	} else {
		executionPrice = basePrice.Mul(one.Sub(s.slippage))
	}
	commission := o.Quantity.Mul(executionPrice).Abs().Mul(s.commissionRate)

	// snapshot the entry leg before the update so a closing fill can be
	// attributed without walking the journal
	var entryPrice, entryQuantity decimal.Decimal
	var entryOrder *order.Order
	if pos, ok := pf.Position(o.Symbol); ok {
		entryPrice = pos.AvgPrice()
		entryQuantity = pos.Quantity()
		entryOrder = pos.OriginatingOrder()
	}

	if !pf.UpdatePosition(bar.Timestamp, o.Symbol, o.Quantity, executionPrice, commission) {
		return nil, nil
	}
	if err := o.Execute(bar.Timestamp, executionPrice); err != nil {
		return nil, err
	}

	pos, open := pf.Position(o.Symbol)
	if open {
		if pos.OriginatingOrder() == nil {
			pos.SetOriginatingOrder(o)
		}
		return nil, nil
	}

	return s.buildTrade(o, pf, entryPrice, entryQuantity, entryOrder, executionPrice, commission), nil
}

// buildTrade assembles the round-trip record for a fill that flattened the
// position
func (s *Simulator) buildTrade(o *order.Order, pf *portfolio.Portfolio, entryPrice, entryQuantity decimal.Decimal, entryOrder *order.Order, executionPrice, commission decimal.Decimal) *portfolio.Trade {
	entryTime := o.CreationTime
	if entryOrder != nil {
		entryTime = entryOrder.CreationTime
	} else {
		// synthesized position without lineage; fall back to the journal
		if txn, ok := pf.LastTransactionBefore(o.Symbol); ok {
			entryPrice = txn.Price
			entryQuantity = txn.Quantity
			entryTime = txn.Timestamp
		}
	}

	isLong := entryQuantity.IsPositive()
	gross := executionPrice.Sub(entryPrice)
	if !isLong {
		gross = entryPrice.Sub(executionPrice)
	}
	profit := gross.Mul(entryQuantity.Abs()).Sub(commission)

	var profitPercent decimal.Decimal
	if notional := entryPrice.Mul(entryQuantity.Abs()); notional.IsPositive() {
		profitPercent = profit.Div(notional).Mul(decimal.NewFromInt(100))
	}

	return &portfolio.Trade{
		Symbol:            o.Symbol,
		EntryTime:         entryTime,
		EntryPrice:        entryPrice,
		EntryQuantity:     entryQuantity,
		ExitTime:          o.ExecutionTime(),
		ExitPrice:         executionPrice,
		ExitQuantity:      o.Quantity,
		Commission:        commission,
		Profit:            profit,
		ProfitPercent:     profitPercent,
		IsLong:            isLong,
		CapitalAfterTrade: pf.TotalValue(),
		EntryOrder:        entryOrder,
		ExitOrder:         o,
	}
}

// fillPrice returns the pre-slippage fill price for the order within the
// bar, and whether the order's trigger condition was met at all
func fillPrice(o *order.Order, bar kline.Bar) (decimal.Decimal, bool) {
	switch o.Type {
	case order.Market:
		return bar.Open, true
	case order.Limit:
		if o.IsBuy() && bar.Low.LessThanOrEqual(o.Price) {
			return o.Price, true
		}
		if o.IsSell() && bar.High.GreaterThanOrEqual(o.Price) {
			return o.Price, true
		}
	case order.Stop:
		if o.IsBuy() && bar.High.GreaterThanOrEqual(o.Price) {
			return o.Price, true
		}
		if o.IsSell() && bar.Low.LessThanOrEqual(o.Price) {
			return o.Price, true
		}
	case order.StopLimit:
		if bar.High.GreaterThanOrEqual(o.Price) && bar.Low.LessThanOrEqual(o.Price) {
			return o.Price, true
		}
	}
	return decimal.Zero, false
}
