// Package risk derives performance statistics from closed trade ledgers
// and provides position sizing and stop-loss placement helpers.
package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	btmath "github.com/tradepulse/gobacktester/common/math"
	"github.com/tradepulse/gobacktester/portfolio"
)

const (
	// DefaultRiskFreeRate is the annual risk-free rate convention
	DefaultRiskFreeRate = 0.02
	// DefaultPeriodsPerYear is the trading days per year convention
	DefaultPeriodsPerYear = 252
)

// NewAnalyzer returns an analyzer with the documented conventions
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		RiskFreeRate:   DefaultRiskFreeRate,
		PeriodsPerYear: DefaultPeriodsPerYear,
	}
}

// CalculateMetrics builds the equity curve and period-return series from
// the ledger and derives every metric. An empty ledger yields zero metrics.
func (a *Analyzer) CalculateMetrics(trades []*portfolio.Trade, initialCapital decimal.Decimal) *Metrics {
	m := &Metrics{}
	if len(trades) == 0 {
		return m
	}
	m.NumberOfTrades = len(trades)

	curve := EquityCurve(trades, initialCapital)
	returns := Returns(curve)

	initial := initialCapital.InexactFloat64()
	if initial != 0 {
		m.TotalReturn = (curve[len(curve)-1] - initial) / initial
	}
	m.MaxDrawdown = btmath.CalculateMaxDrawdown(curve) / 100
	m.SharpeRatio = btmath.CalculateSharpeRatio(returns, a.RiskFreeRate, a.PeriodsPerYear)
	m.SortinoRatio = btmath.CalculateSortinoRatio(returns, a.RiskFreeRate, a.PeriodsPerYear)
	m.Volatility = btmath.SampleStandardDeviation(returns) * math.Sqrt(float64(a.PeriodsPerYear))

	switch {
	case m.MaxDrawdown > 0:
		m.CalmarRatio = m.TotalReturn / m.MaxDrawdown
	case m.TotalReturn > 0:
		m.CalmarRatio = math.Inf(1)
	}

	var winCount, lossCount int
	var totalProfit, totalLoss float64
	for _, t := range trades {
		profit := t.Profit.InexactFloat64()
		if profit > 0 {
			winCount++
			totalProfit += profit
		} else {
			lossCount++
			totalLoss += math.Abs(profit)
		}
	}
	m.WinRate = float64(winCount) / float64(len(trades))
	if totalLoss > 0 {
		m.ProfitFactor = totalProfit / totalLoss
	} else {
		m.ProfitFactor = math.Inf(1)
	}
	var avgWin, avgLoss float64
	if winCount > 0 {
		avgWin = totalProfit / float64(winCount)
	}
	if lossCount > 0 {
		avgLoss = totalLoss / float64(lossCount)
	}
	m.Expectancy = m.WinRate*avgWin - (1-m.WinRate)*avgLoss
	return m
}

// EquityCurve accumulates trade profits onto the initial capital; element
// zero is the initial capital itself
func EquityCurve(trades []*portfolio.Trade, initialCapital decimal.Decimal) []float64 {
	curve := make([]float64, 0, len(trades)+1)
	equity := initialCapital
	curve = append(curve, equity.InexactFloat64())
	for _, t := range trades {
		equity = equity.Add(t.Profit)
		curve = append(curve, equity.InexactFloat64())
	}
	return curve
}

// Returns converts an equity curve into its period-return series
func Returns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curve[i]-curve[i-1])/curve[i-1])
	}
	return returns
}

// CalculatePositionSize converts the fraction of portfolio value risked
// into whole units given the distance between entry and stop. Non-positive
// inputs yield zero.
func CalculatePositionSize(pf *portfolio.Portfolio, price, stopLossPrice decimal.Decimal, riskPercent float64) decimal.Decimal {
	if pf == nil || !price.IsPositive() || !stopLossPrice.IsPositive() || riskPercent <= 0 {
		return decimal.Zero
	}
	riskPerUnit := price.Sub(stopLossPrice).Abs()
	if !riskPerUnit.IsPositive() {
		return decimal.Zero
	}
	riskAmount := pf.TotalValue().Mul(decimal.NewFromFloat(riskPercent / 100))
	return riskAmount.Div(riskPerUnit).Floor()
}

func requirePositive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s %v", errNonPositiveInput, name, v)
	}
	return nil
}
