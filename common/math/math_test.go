package math

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmeticMean(t *testing.T) {
	t.Parallel()
	assert.Zero(t, ArithmeticMean(nil))
	assert.Equal(t, 2.0, ArithmeticMean([]float64{1, 2, 3}))
}

func TestStandardDeviations(t *testing.T) {
	t.Parallel()
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, PopulationStandardDeviation(values), 1e-9)
	assert.InDelta(t, 2.138, SampleStandardDeviation(values), 1e-3)
	assert.Zero(t, SampleStandardDeviation([]float64{5}), "a single sample has no dispersion")
}

func TestCalculateMaxDrawdown(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateMaxDrawdown([]float64{100}))
	assert.Zero(t, CalculateMaxDrawdown([]float64{100, 110, 120}), "a rising curve never draws down")
	assert.InDelta(t, 25.0, CalculateMaxDrawdown([]float64{100, 120, 90, 110}), 1e-9,
		"largest drop is 120 to 90")
	result := CalculateMaxDrawdown([]float64{100, 50, 200, 150})
	assert.InDelta(t, 50.0, result, 1e-9)
	assert.LessOrEqual(t, result, 100.0)
}

func TestPeriodRiskFreeRate(t *testing.T) {
	t.Parallel()
	rate := PeriodRiskFreeRate(0.02, 252)
	assert.InDelta(t, 7.859e-5, rate, 1e-7, "2%% annual de-annualizes geometrically")
}

func TestCalculateSharpeRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateSharpeRatio(nil, 0.02, 252))

	constant := []float64{0.01, 0.01, 0.01}
	assert.True(t, stdmath.IsInf(CalculateSharpeRatio(constant, 0.02, 252), 1),
		"zero dispersion with positive excess returns the positive sentinel")

	flat := make([]float64, 3)
	rate := PeriodRiskFreeRate(0.02, 252)
	for i := range flat {
		flat[i] = rate
	}
	assert.Zero(t, CalculateSharpeRatio(flat, 0.02, 252), "returns pinned to the risk-free rate carry no premium")

	mixed := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	ratio := CalculateSharpeRatio(mixed, 0.02, 252)
	assert.False(t, stdmath.IsNaN(ratio))
}

func TestCalculateSortinoRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateSortinoRatio(nil, 0.02, 252))
	assert.True(t, stdmath.IsInf(CalculateSortinoRatio([]float64{0.01, 0.02}, 0.02, 252), 1),
		"no downside periods returns the positive sentinel")

	mixed := []float64{0.02, -0.05, 0.03}
	assert.False(t, stdmath.IsInf(CalculateSortinoRatio(mixed, 0.02, 252), 0))
}

func TestCalculateCompoundAnnualGrowthRate(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateCompoundAnnualGrowthRate(0, 100, 1, 1))
	assert.InDelta(t, 10.0, CalculateCompoundAnnualGrowthRate(100, 110, 1, 1), 1e-9)
}
