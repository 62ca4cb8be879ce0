package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/indicators"
	"github.com/tradepulse/gobacktester/kline"
)

// CalculatePercentageStop places a stop the given percentage away from the
// entry price, below for longs and above for shorts
func CalculatePercentageStop(entryPrice decimal.Decimal, percentage float64, isLong bool) (decimal.Decimal, error) {
	if err := requirePositive("percentage", percentage); err != nil {
		return decimal.Zero, err
	}
	offset := decimal.NewFromFloat(percentage / 100)
	if isLong {
		return entryPrice.Mul(decimal.NewFromInt(1).Sub(offset)), nil
	}
	return entryPrice.Mul(decimal.NewFromInt(1).Add(offset)), nil
}

// CalculateFixedAmountStop places a stop a fixed price distance from the
// entry price
func CalculateFixedAmountStop(entryPrice, amount decimal.Decimal, isLong bool) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount %v", errNonPositiveInput, amount)
	}
	if isLong {
		return entryPrice.Sub(amount), nil
	}
	return entryPrice.Add(amount), nil
}

// CalculateATRStop places a volatility stop a multiple of the average true
// range away from the entry price
func CalculateATRStop(series *kline.Series, period int, multiplier float64, entryPrice decimal.Decimal, isLong bool) (decimal.Decimal, error) {
	atr, err := latestATR(series, period)
	if err != nil {
		return decimal.Zero, err
	}
	if err := requirePositive("multiplier", multiplier); err != nil {
		return decimal.Zero, err
	}
	offset := decimal.NewFromFloat(atr * multiplier)
	if isLong {
		return entryPrice.Sub(offset), nil
	}
	return entryPrice.Add(offset), nil
}

// CalculateChandelierExit places a stop a multiple of the average true
// range below the period's highest high for longs, or above the lowest low
// for shorts
func CalculateChandelierExit(series *kline.Series, period int, multiplier float64, isLong bool) (decimal.Decimal, error) {
	if series == nil || series.Len() < period {
		return decimal.Zero, fmt.Errorf("%w: need %d", ErrNotEnoughBars, period)
	}
	atr, err := latestATR(series, period)
	if err != nil {
		return decimal.Zero, err
	}

	bars := series.Bars()
	highestHigh := bars[len(bars)-period].High
	lowestLow := bars[len(bars)-period].Low
	for _, bar := range bars[len(bars)-period:] {
		if bar.High.GreaterThan(highestHigh) {
			highestHigh = bar.High
		}
		if bar.Low.LessThan(lowestLow) {
			lowestLow = bar.Low
		}
	}

	offset := decimal.NewFromFloat(atr * multiplier)
	if isLong {
		return highestHigh.Sub(offset), nil
	}
	return lowestLow.Add(offset), nil
}

// CalculateBollingerStop places a stop on the lower bollinger band for
// longs and the upper band for shorts
func CalculateBollingerStop(series *kline.Series, period int, deviations float64, isLong bool) (decimal.Decimal, error) {
	if series == nil || series.Len() < period {
		return decimal.Zero, fmt.Errorf("%w: need %d", ErrNotEnoughBars, period)
	}
	upper, _, lower := indicators.BollingerBands{Period: period, Deviations: deviations}.Bands(series)
	band := upper[len(upper)-1]
	if isLong {
		band = lower[len(lower)-1]
	}
	if math.IsNaN(band) {
		return decimal.Zero, fmt.Errorf("%w: need %d", ErrNotEnoughBars, period)
	}
	return decimal.NewFromFloat(band), nil
}

func latestATR(series *kline.Series, period int) (float64, error) {
	if series == nil || series.Len() < period {
		return 0, fmt.Errorf("%w: need %d", ErrNotEnoughBars, period)
	}
	values := indicators.ATR{Period: period}.Calculate(series)
	atr := values[len(values)-1]
	if math.IsNaN(atr) {
		return 0, fmt.Errorf("%w: need %d", ErrNotEnoughBars, period)
	}
	return atr, nil
}
