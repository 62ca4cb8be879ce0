package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/gobacktester/kline"
)

var anchor = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func constantSeries(t *testing.T, n int, price, spread float64) *kline.Series {
	t.Helper()
	s := kline.NewSeries("AAPL")
	for i := 0; i < n; i++ {
		b, err := kline.NewBar(anchor.AddDate(0, 0, i),
			decimal.NewFromFloat(price),
			decimal.NewFromFloat(price+spread),
			decimal.NewFromFloat(price-spread),
			decimal.NewFromFloat(price),
			decimal.NewFromInt(1000))
		require.NoError(t, err)
		s.Add(b)
	}
	return s
}

func TestSMAAlignsWithSeries(t *testing.T) {
	t.Parallel()
	series := constantSeries(t, 20, 100, 1)
	values := SMA{Period: 5}.Calculate(series)

	require.Len(t, values, series.Len(), "output aligns one value per bar")
	assert.InDelta(t, 100, values[len(values)-1], 1e-9, "the average of a constant series is the constant")
}

func TestEMAOfConstantSeries(t *testing.T) {
	t.Parallel()
	series := constantSeries(t, 20, 50, 1)
	values := EMA{Period: 5}.Calculate(series)
	require.Len(t, values, series.Len())
	assert.InDelta(t, 50, values[len(values)-1], 1e-9)
}

func TestATROfConstantRange(t *testing.T) {
	t.Parallel()
	series := constantSeries(t, 20, 100, 2)
	values := ATR{Period: 5}.Calculate(series)
	require.Len(t, values, series.Len())
	assert.InDelta(t, 4, values[len(values)-1], 1e-9, "the true range of every bar is the four point spread")
}

func TestBollingerBandsOfConstantSeries(t *testing.T) {
	t.Parallel()
	series := constantSeries(t, 30, 100, 1)
	upper, middle, lower := BollingerBands{Period: 20, Deviations: 2}.Bands(series)

	require.Len(t, middle, series.Len())
	assert.InDelta(t, 100, middle[len(middle)-1], 1e-9)
	assert.InDelta(t, 100, upper[len(upper)-1], 1e-9, "zero dispersion collapses the bands")
	assert.InDelta(t, 100, lower[len(lower)-1], 1e-9)
}

func TestPadLeftFillsWithNaN(t *testing.T) {
	t.Parallel()
	out := pad([]float64{1, 2}, 5)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[2]))
	assert.Equal(t, 1.0, out[3])
	assert.Equal(t, 2.0, out[4])

	same := pad([]float64{1, 2, 3}, 3)
	assert.Equal(t, []float64{1, 2, 3}, same, "full-length input passes through")
}
