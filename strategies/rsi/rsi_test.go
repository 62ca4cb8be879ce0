package rsi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/strategies/base"
)

var anchor = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(t *testing.T, closes ...float64) *kline.Series {
	t.Helper()
	s := kline.NewSeries("AAPL")
	for i, c := range closes {
		b, err := kline.NewBar(anchor.AddDate(0, 0, i),
			decimal.NewFromFloat(c),
			decimal.NewFromFloat(c+1),
			decimal.NewFromFloat(c-1),
			decimal.NewFromFloat(c),
			decimal.NewFromInt(1000))
		require.NoError(t, err)
		s.Add(b)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	_, err := New("AAPL", Config{Period: 0, Oversold: 30, Overbought: 70})
	assert.ErrorIs(t, err, base.ErrInvalidCustomSettings)

	_, err = New("AAPL", Config{Period: 14, Oversold: 70, Overbought: 30})
	assert.ErrorIs(t, err, base.ErrInvalidCustomSettings, "the bands must not be inverted")

	s, err := New("AAPL", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, s.RequiredSymbols())
}

func TestOversoldRecoveryBuys(t *testing.T) {
	t.Parallel()
	// a relentless decline drives the index to the floor, then a strong
	// rally lifts it back out of the oversold band
	closes := []float64{100, 95, 90, 85, 80, 75, 70, 65, 60, 55, 105}
	series := seriesFromCloses(t, closes...)

	s, err := New("AAPL", Config{Period: 3, Oversold: 30, Overbought: 70, PositionSize: 0.1})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(map[string]*kline.Series{"AAPL": series}))

	pf := portfolio.New(decimal.NewFromInt(10000))
	var buys int
	for i := 0; i < series.Len(); i++ {
		bar, err := series.Bar(i)
		require.NoError(t, err)
		orders, err := s.GenerateOrders(bar.Timestamp, map[string]kline.Bar{"AAPL": bar}, pf)
		require.NoError(t, err)
		for _, o := range orders {
			require.True(t, o.IsBuy(), "the decline itself must not trade")
			buys++
		}
	}
	assert.Equal(t, 1, buys, "leaving the oversold band buys exactly once")
}

func TestOverboughtFadeClosesLong(t *testing.T) {
	t.Parallel()
	// a relentless rally pins the index high, then a sell-off drops it back
	// below the overbought band
	closes := []float64{100, 105, 110, 115, 120, 125, 130, 135, 140, 145, 95}
	series := seriesFromCloses(t, closes...)

	s, err := New("AAPL", Config{Period: 3, Oversold: 30, Overbought: 70, PositionSize: 0.1})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(map[string]*kline.Series{"AAPL": series}))

	pf := portfolio.New(decimal.NewFromInt(100000))
	require.True(t, pf.UpdatePosition(anchor, "AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.Zero))

	var sells int
	for i := 0; i < series.Len(); i++ {
		bar, err := series.Bar(i)
		require.NoError(t, err)
		orders, err := s.GenerateOrders(bar.Timestamp, map[string]kline.Bar{"AAPL": bar}, pf)
		require.NoError(t, err)
		for _, o := range orders {
			require.True(t, o.IsSell())
			assert.True(t, o.Quantity.Equal(decimal.NewFromInt(-10)))
			sells++
		}
	}
	assert.Equal(t, 1, sells, "fading from overbought closes the long exactly once")
}

func TestWarmupGeneratesNothing(t *testing.T) {
	t.Parallel()
	series := seriesFromCloses(t, 100, 99, 98)
	s, err := New("AAPL", Config{Period: 14, Oversold: 30, Overbought: 70, PositionSize: 0.1})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(map[string]*kline.Series{"AAPL": series}))

	bar, err := series.Bar(2)
	require.NoError(t, err)
	orders, err := s.GenerateOrders(bar.Timestamp, map[string]kline.Bar{"AAPL": bar}, portfolio.New(decimal.NewFromInt(10000)))
	require.NoError(t, err)
	assert.Empty(t, orders, "fewer bars than the period generates nothing")
}

func TestParametersRoundTrip(t *testing.T) {
	t.Parallel()
	s, err := New("AAPL", DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, s.SetParameter("rsi-period", 7))
	require.NoError(t, s.SetParameter("rsi-low", 25.0))
	require.NoError(t, s.SetParameter("rsi-high", 75.0))

	params := s.Parameters()
	assert.Equal(t, 7, params["rsi-period"])
	assert.Equal(t, 25.0, params["rsi-low"])
	assert.Equal(t, 75.0, params["rsi-high"])

	assert.Error(t, s.SetParameter("unknown", 1))
}

func TestFactoryAppliesParameters(t *testing.T) {
	t.Parallel()
	h, err := Factory("AAPL", map[string]any{"rsi-period": 7})
	require.NoError(t, err)
	assert.Equal(t, 7, h.Parameters()["rsi-period"])

	_, err = Factory("AAPL", map[string]any{"bogus": true})
	assert.Error(t, err)
}
