package exchange

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

var anchor = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(t *testing.T, ts time.Time, open, high, low, closePrice float64) kline.Bar {
	t.Helper()
	b, err := kline.NewBar(ts, dec(open), dec(high), dec(low), dec(closePrice), dec(1000))
	require.NoError(t, err, "NewBar must not error")
	return b
}

func frictionless(t *testing.T) *Simulator {
	t.Helper()
	s, err := NewSimulator(decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	return s
}

func TestNewSimulatorValidation(t *testing.T) {
	t.Parallel()
	_, err := NewSimulator(dec(-0.1), decimal.Zero)
	assert.Error(t, err, "negative commission must be rejected")
	_, err = NewSimulator(decimal.Zero, dec(-0.1))
	assert.Error(t, err, "negative slippage must be rejected")
}

func TestMarketBuyFillsAtOpenWithSlippage(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulator(decimal.Zero, dec(0.01))
	require.NoError(t, err)
	pf := portfolio.New(dec(10000))

	o, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	trade, err := sim.ExecuteOrder(o, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err)
	assert.Nil(t, trade, "an opening fill emits no trade")

	require.True(t, o.IsExecuted())
	assert.True(t, o.ExecutionPrice().Equal(dec(101)), "buy pays open times one plus slippage")
	pos, ok := pf.Position("AAPL")
	require.True(t, ok)
	assert.Same(t, o, pos.OriginatingOrder(), "the opening order is attached to the position")
}

func TestCommissionOnNotional(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulator(dec(0.01), decimal.Zero)
	require.NoError(t, err)
	pf := portfolio.New(dec(10000))

	o, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	_, err = sim.ExecuteOrder(o, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err)

	txns := pf.Transactions()
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Commission.Equal(dec(10)), "commission is 1%% of 10*100")
	assert.True(t, pf.Cash().Equal(dec(8990)))
}

func TestLimitBuySemantics(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(10000))

	o, err := order.NewTriggered("AAPL", order.Limit, dec(10), dec(95), anchor)
	require.NoError(t, err)

	trade, err := sim.ExecuteOrder(o, bar(t, anchor, 100, 105, 96, 102), pf)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.False(t, o.IsExecuted(), "low above the limit leaves the order unfilled")
	assert.Empty(t, pf.Transactions(), "a miss must not journal")

	trade, err = sim.ExecuteOrder(o, bar(t, anchor.AddDate(0, 0, 1), 100, 105, 95, 102), pf)
	require.NoError(t, err)
	assert.Nil(t, trade)
	require.True(t, o.IsExecuted(), "low touching the limit fills")
	assert.True(t, o.ExecutionPrice().Equal(dec(95)), "limit fills at the trigger price")
}

func TestStopSellSemantics(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulator(decimal.Zero, dec(0.01))
	require.NoError(t, err)
	pf := portfolio.New(dec(10000))

	open, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	_, err = sim.ExecuteOrder(open, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err)

	stop, err := order.NewTriggered("AAPL", order.Stop, dec(-10), dec(95), anchor.AddDate(0, 0, 1))
	require.NoError(t, err)

	trade, err := sim.ExecuteOrder(stop, bar(t, anchor.AddDate(0, 0, 1), 100, 105, 96, 102), pf)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.False(t, stop.IsExecuted(), "a stop sell needs the low at or below the trigger")

	trade, err = sim.ExecuteOrder(stop, bar(t, anchor.AddDate(0, 0, 2), 96, 97, 94, 95), pf)
	require.NoError(t, err)
	require.NotNil(t, trade, "the closing fill emits a trade")
	assert.True(t, stop.ExecutionPrice().Equal(dec(94.05)), "stop sells receive trigger times one minus slippage")
}

func TestStopLimitNeedsBothSides(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(10000))

	o, err := order.NewTriggered("AAPL", order.StopLimit, dec(10), dec(101), anchor)
	require.NoError(t, err)

	_, err = sim.ExecuteOrder(o, bar(t, anchor, 103, 105, 102, 104), pf)
	require.NoError(t, err)
	assert.False(t, o.IsExecuted(), "bar entirely above the trigger must not fill")

	_, err = sim.ExecuteOrder(o, bar(t, anchor.AddDate(0, 0, 1), 100, 102, 99, 101), pf)
	require.NoError(t, err)
	assert.True(t, o.IsExecuted(), "bar straddling the trigger fills")
	assert.True(t, o.ExecutionPrice().Equal(dec(101)))
}

func TestRoundTripEmitsTrade(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(10000))

	entry, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	trade, err := sim.ExecuteOrder(entry, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err)
	require.Nil(t, trade)

	exitTime := anchor.AddDate(0, 0, 5)
	exit, err := order.New("AAPL", dec(-10), exitTime)
	require.NoError(t, err)
	trade, err = sim.ExecuteOrder(exit, bar(t, exitTime, 110, 112, 108, 111), pf)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, "AAPL", trade.Symbol)
	assert.True(t, trade.IsLong)
	assert.True(t, trade.EntryPrice.Equal(dec(100)))
	assert.True(t, trade.EntryQuantity.Equal(dec(10)))
	assert.True(t, trade.ExitPrice.Equal(dec(110)))
	assert.True(t, trade.Profit.Equal(dec(100)))
	assert.True(t, trade.ProfitPercent.Equal(dec(10)))
	assert.True(t, trade.EntryTime.Equal(anchor), "entry time is the opening order's creation time")
	assert.True(t, trade.ExitTime.Equal(exitTime))
	assert.True(t, trade.CapitalAfterTrade.Equal(dec(10100)))
	assert.Same(t, entry, trade.EntryOrder)
	assert.Same(t, exit, trade.ExitOrder)
	assert.False(t, pf.HasPosition("AAPL"))
}

func TestPartialCloseEmitsNoTrade(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(10000))

	entry, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	_, err = sim.ExecuteOrder(entry, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err)

	reduce, err := order.New("AAPL", dec(-4), anchor.AddDate(0, 0, 1))
	require.NoError(t, err)
	trade, err := sim.ExecuteOrder(reduce, bar(t, anchor.AddDate(0, 0, 1), 110, 112, 108, 111), pf)
	require.NoError(t, err)
	assert.Nil(t, trade, "reducing a position is not a round trip")

	pos, ok := pf.Position("AAPL")
	require.True(t, ok)
	assert.True(t, pos.Quantity().Equal(dec(6)))
	assert.Same(t, entry, pos.OriginatingOrder(), "the originator survives a reduce")
}

func TestPortfolioRejectionLeavesOrderUnexecuted(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(100))

	o, err := order.New("AAPL", dec(10), anchor)
	require.NoError(t, err)
	trade, err := sim.ExecuteOrder(o, bar(t, anchor, 100, 105, 99, 102), pf)
	require.NoError(t, err, "an execution miss is not an error")
	assert.Nil(t, trade)
	assert.False(t, o.IsExecuted(), "a rejected fill must not mark the order executed")
	assert.Empty(t, pf.Transactions())
}

func TestNilGuards(t *testing.T) {
	t.Parallel()
	sim := frictionless(t)
	pf := portfolio.New(dec(10000))

	_, err := sim.ExecuteOrder(nil, bar(t, anchor, 100, 105, 99, 102), pf)
	assert.ErrorIs(t, err, order.ErrSubmissionIsNil)

	o, err := order.New("AAPL", dec(1), anchor)
	require.NoError(t, err)
	_, err = sim.ExecuteOrder(o, kline.Bar{}, pf)
	assert.ErrorIs(t, err, ErrNilBar)

	_, err = sim.ExecuteOrder(o, bar(t, anchor, 100, 105, 99, 102), nil)
	assert.ErrorIs(t, err, ErrNilPortfolio)
}
