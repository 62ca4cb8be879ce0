package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/gobacktester/kline"
)

func trendingSeries(t *testing.T, n int) *kline.Series {
	t.Helper()
	s := kline.NewSeries("AAPL")
	for i := 0; i < n; i++ {
		open := float64(100 + i)
		b, err := kline.NewBar(anchor.AddDate(0, 0, i),
			dec(open), dec(open+2), dec(open-2), dec(open+1), dec(1000))
		require.NoError(t, err)
		s.Add(b)
	}
	return s
}

func TestCalculatePercentageStop(t *testing.T) {
	t.Parallel()
	long, err := CalculatePercentageStop(dec(100), 5, true)
	require.NoError(t, err)
	assert.True(t, long.Equal(dec(95)))

	short, err := CalculatePercentageStop(dec(100), 5, false)
	require.NoError(t, err)
	assert.True(t, short.Equal(dec(105)))

	_, err = CalculatePercentageStop(dec(100), 0, true)
	assert.Error(t, err, "non-positive percentage must be rejected")
}

func TestCalculateFixedAmountStop(t *testing.T) {
	t.Parallel()
	long, err := CalculateFixedAmountStop(dec(100), dec(3), true)
	require.NoError(t, err)
	assert.True(t, long.Equal(dec(97)))

	short, err := CalculateFixedAmountStop(dec(100), dec(3), false)
	require.NoError(t, err)
	assert.True(t, short.Equal(dec(103)))

	_, err = CalculateFixedAmountStop(dec(100), decimal.Zero, true)
	assert.Error(t, err)
}

func TestCalculateATRStop(t *testing.T) {
	t.Parallel()
	series := trendingSeries(t, 30)

	long, err := CalculateATRStop(series, 14, 2, dec(130), true)
	require.NoError(t, err, "CalculateATRStop must not error")
	assert.True(t, long.LessThan(dec(130)), "a long stop sits below the entry")

	short, err := CalculateATRStop(series, 14, 2, dec(130), false)
	require.NoError(t, err)
	assert.True(t, short.GreaterThan(dec(130)), "a short stop sits above the entry")

	_, err = CalculateATRStop(trendingSeries(t, 5), 14, 2, dec(100), true)
	assert.ErrorIs(t, err, ErrNotEnoughBars)
}

func TestCalculateChandelierExit(t *testing.T) {
	t.Parallel()
	series := trendingSeries(t, 30)

	long, err := CalculateChandelierExit(series, 22, 3, true)
	require.NoError(t, err)
	// highest high of the window is 131
	assert.True(t, long.LessThan(dec(131)))

	short, err := CalculateChandelierExit(series, 22, 3, false)
	require.NoError(t, err)
	// lowest low of the window is 106
	assert.True(t, short.GreaterThan(dec(106)))

	_, err = CalculateChandelierExit(trendingSeries(t, 5), 22, 3, true)
	assert.ErrorIs(t, err, ErrNotEnoughBars)
}

func TestCalculateBollingerStop(t *testing.T) {
	t.Parallel()
	series := trendingSeries(t, 30)

	long, err := CalculateBollingerStop(series, 20, 2, true)
	require.NoError(t, err)
	short, err := CalculateBollingerStop(series, 20, 2, false)
	require.NoError(t, err)
	assert.True(t, long.LessThan(short), "the lower band sits below the upper band")

	_, err = CalculateBollingerStop(trendingSeries(t, 3), 20, 2, true)
	assert.ErrorIs(t, err, ErrNotEnoughBars)
}

func TestStopCalculationsAreDeterministic(t *testing.T) {
	t.Parallel()
	series := trendingSeries(t, 30)
	a, err := CalculateChandelierExit(series, 22, 3, true)
	require.NoError(t, err)
	b, err := CalculateChandelierExit(series, 22, 3, true)
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "identical inputs must produce identical stops")
}
