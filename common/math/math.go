// Package math provides the float64 statistics helpers used by the risk
// analyzer. Equity and returns series arrive here already converted from
// their decimal representations.
package math

import (
	"math"
)

// ArithmeticMean returns the arithmetic average of values, or 0 for an
// empty slice
func ArithmeticMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for i := range values {
		sum += values[i]
	}
	return sum / float64(len(values))
}

// PopulationStandardDeviation calculates standard deviation using
// population based calculation
func PopulationStandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticMean(values)
	diffs := make([]float64, len(values))
	for x := range values {
		diffs[x] = math.Pow(values[x]-avg, 2)
	}
	return math.Sqrt(ArithmeticMean(diffs))
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean, using the n-1 denominator
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := ArithmeticMean(values)
	var combined float64
	for i := range values {
		combined += math.Pow(values[i]-mean, 2)
	}
	return math.Sqrt(combined / float64(len(values)-1))
}

// PeriodRiskFreeRate converts an annual risk-free rate to the rate of a
// single period via geometric de-annualization
func PeriodRiskFreeRate(annualRate float64, periodsPerYear int) float64 {
	return math.Pow(1+annualRate, 1/float64(periodsPerYear)) - 1
}

// CalculateSharpeRatio returns the annualized sharpe ratio of the period
// returns against an annual risk-free rate. A zero standard deviation of
// excess returns yields +Inf when the mean excess return is positive, -Inf
// when negative and 0 when flat.
func CalculateSharpeRatio(periodReturns []float64, annualRiskFreeRate float64, periodsPerYear int) float64 {
	if len(periodReturns) == 0 {
		return 0
	}
	periodRate := PeriodRiskFreeRate(annualRiskFreeRate, periodsPerYear)
	excess := make([]float64, len(periodReturns))
	for i := range periodReturns {
		excess[i] = periodReturns[i] - periodRate
	}
	mean := ArithmeticMean(excess)
	stdDev := SampleStandardDeviation(excess)
	if stdDev == 0 {
		switch {
		case mean > 0:
			return math.Inf(1)
		case mean < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	return mean / stdDev * math.Sqrt(float64(periodsPerYear))
}

// CalculateSortinoRatio returns the annualized sortino ratio, penalising
// only returns below the period risk-free rate. A zero downside deviation
// yields +Inf.
func CalculateSortinoRatio(periodReturns []float64, annualRiskFreeRate float64, periodsPerYear int) float64 {
	if len(periodReturns) == 0 {
		return 0
	}
	periodRate := PeriodRiskFreeRate(annualRiskFreeRate, periodsPerYear)
	var sumSquaredDownside float64
	for i := range periodReturns {
		if periodReturns[i] < periodRate {
			diff := periodReturns[i] - periodRate
			sumSquaredDownside += diff * diff
		}
	}
	downsideDeviation := math.Sqrt(sumSquaredDownside / float64(len(periodReturns)))
	mean := ArithmeticMean(periodReturns)
	if downsideDeviation == 0 {
		return math.Inf(1)
	}
	return (mean - periodRate) / downsideDeviation * math.Sqrt(float64(periodsPerYear))
}

// CalculateMaxDrawdown returns the largest percentage decline from a running
// high-water mark over the supplied curve, as a value in [0, 100]
func CalculateMaxDrawdown(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	highWaterMark := curve[0]
	var maxDrawdown float64
	for i := 1; i < len(curve); i++ {
		if curve[i] > highWaterMark {
			highWaterMark = curve[i]
			continue
		}
		drawdown := (highWaterMark - curve[i]) / highWaterMark * 100
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// CalculateCompoundAnnualGrowthRate calculates CAGR between an opening and
// closing value over a number of intervals at the given density
func CalculateCompoundAnnualGrowthRate(openValue, closeValue, intervalsPerYear, numberOfIntervals float64) float64 {
	if openValue <= 0 || closeValue <= 0 || numberOfIntervals <= 0 {
		return 0
	}
	k := math.Pow(closeValue/openValue, intervalsPerYear/numberOfIntervals) - 1
	return k * 100
}
