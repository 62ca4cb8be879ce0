// Package indicators adapts the gct-ta indicator library to the series
// type used by strategies. Each adapter is a deterministic function of the
// series it is handed; values before an indicator's warm-up period are NaN.
package indicators

import (
	"math"

	"github.com/thrasher-corp/gct-ta/indicators"

	"github.com/tradepulse/gobacktester/kline"
)

// Indicator converts a series into one value per bar
type Indicator interface {
	Calculate(series *kline.Series) []float64
}

// SMA is a simple moving average of closing prices
type SMA struct {
	Period int
}

// Calculate implements the Indicator interface
func (i SMA) Calculate(series *kline.Series) []float64 {
	return pad(indicators.SMA(series.GetOHLC().Close, i.Period), series.Len())
}

// EMA is an exponential moving average of closing prices
type EMA struct {
	Period int
}

// Calculate implements the Indicator interface
func (i EMA) Calculate(series *kline.Series) []float64 {
	return pad(indicators.EMA(series.GetOHLC().Close, i.Period), series.Len())
}

// RSI is the relative strength index of closing prices
type RSI struct {
	Period int
}

// Calculate implements the Indicator interface
func (i RSI) Calculate(series *kline.Series) []float64 {
	return pad(indicators.RSI(series.GetOHLC().Close, i.Period), series.Len())
}

// MACD is the moving average convergence divergence line
type MACD struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// Calculate implements the Indicator interface, returning the MACD line
func (i MACD) Calculate(series *kline.Series) []float64 {
	macd, _, _ := indicators.MACD(series.GetOHLC().Close, i.FastPeriod, i.SlowPeriod, i.SignalPeriod)
	return pad(macd, series.Len())
}

// ATR is the average true range of the series
type ATR struct {
	Period int
}

// Calculate implements the Indicator interface
func (i ATR) Calculate(series *kline.Series) []float64 {
	ohlc := series.GetOHLC()
	return pad(indicators.ATR(ohlc.High, ohlc.Low, ohlc.Close, i.Period), series.Len())
}

// BollingerBands configures a bollinger band calculation over closing prices
type BollingerBands struct {
	Period     int
	Deviations float64
}

// Calculate implements the Indicator interface, returning the middle band.
// Bands returns all three.
func (i BollingerBands) Calculate(series *kline.Series) []float64 {
	_, middle, _ := i.Bands(series)
	return middle
}

// Bands returns the upper, middle and lower bollinger bands
func (i BollingerBands) Bands(series *kline.Series) (upper, middle, lower []float64) {
	upper, middle, lower = indicators.BBANDS(series.GetOHLC().Close,
		i.Period,
		i.Deviations,
		i.Deviations,
		indicators.Sma)
	return pad(upper, series.Len()), pad(middle, series.Len()), pad(lower, series.Len())
}

// pad left-fills values with NaN until they align with the series length
func pad(values []float64, length int) []float64 {
	if len(values) >= length {
		return values
	}
	out := make([]float64, length)
	offset := length - len(values)
	for i := 0; i < offset; i++ {
		out[i] = math.NaN()
	}
	copy(out[offset:], values)
	return out
}
