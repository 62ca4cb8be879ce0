// Package engine implements the bar-driven backtest event loop. A run is
// single threaded and fully deterministic for identical inputs: bars are
// dispatched in ascending timestamp order, strategies fire in registration
// order at each tick, and their orders execute in the order generated.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/common"
	"github.com/tradepulse/gobacktester/data"
	"github.com/tradepulse/gobacktester/exchange"
	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/log"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/strategies"
)

// New returns a backtest over the data service funded with initialCapital,
// carrying the default commission and slippage rates
func New(dataService *data.Service, initialCapital decimal.Decimal) (*BackTest, error) {
	if dataService == nil {
		return nil, errNilDataService
	}
	return &BackTest{
		dataService:    dataService,
		pf:             portfolio.New(initialCapital),
		initialCapital: initialCapital,
		commissionRate: DefaultCommissionRate,
		slippage:       DefaultSlippage,
	}, nil
}

// AddStrategy registers a strategy; strategies fire in registration order
func (b *BackTest) AddStrategy(s strategies.Handler) error {
	if s == nil {
		return errNilStrategy
	}
	b.strategies = append(b.strategies, s)
	return nil
}

// RemoveStrategy drops the strategy registered under name
func (b *BackTest) RemoveStrategy(name string) {
	for i := range b.strategies {
		if b.strategies[i].Name() == name {
			b.strategies = append(b.strategies[:i], b.strategies[i+1:]...)
			return
		}
	}
}

// SetCommissionRate overrides the proportional commission applied to fills
func (b *BackTest) SetCommissionRate(rate decimal.Decimal) {
	b.commissionRate = rate
}

// SetSlippage overrides the multiplicative slippage applied to fills
func (b *BackTest) SetSlippage(slippage decimal.Decimal) {
	b.slippage = slippage
}

// Portfolio exposes the portfolio owned by this run
func (b *BackTest) Portfolio() *portfolio.Portfolio {
	return b.pf
}

// Trades returns a copy of the closed trade ledger
func (b *BackTest) Trades() []*portfolio.Trade {
	out := make([]*portfolio.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Run simulates [start, end] inclusive and aggregates the outcome. The
// portfolio and ledger reset at the top of every invocation, so running the
// same range twice yields identical results.
func (b *BackTest) Run(start, end time.Time) (*Results, error) {
	if start.IsZero() || end.IsZero() {
		return nil, common.ErrDateUnset
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %v after %v", common.ErrStartAfterEnd, start, end)
	}

	if err := b.setupMetaData(); err != nil {
		return nil, err
	}
	b.pf.Reset(b.initialCapital)
	b.trades = nil
	sim, err := exchange.NewSimulator(b.commissionRate, b.slippage)
	if err != nil {
		return nil, err
	}
	b.simulator = sim

	allData, symbols, err := b.fetchRequiredData(start, end)
	if err != nil {
		return nil, err
	}
	for i := range b.strategies {
		if err := b.strategies[i].Initialize(allData); err != nil {
			return nil, fmt.Errorf("%w: %q initialize: %v", ErrStrategyFault, b.strategies[i].Name(), err)
		}
	}

	timeline := buildTimeline(allData, start, end)
	log.Debugf(log.Engine, "run %s: %d symbols, %d ticks", b.MetaData.ID, len(symbols), len(timeline))

	for _, ts := range timeline {
		currentBars := make(map[string]kline.Bar, len(symbols))
		for _, symbol := range symbols {
			if bar, ok := allData[symbol].BarAt(ts); ok {
				currentBars[symbol] = bar
			}
		}

		if err := b.checkStopLossAndTakeProfit(ts, currentBars); err != nil {
			return nil, err
		}

		for i := range b.strategies {
			s := b.strategies[i]
			if err := s.OnBar(ts, currentBars, b.pf); err != nil {
				return nil, fmt.Errorf("%w at %v: %q on bar: %v", ErrStrategyFault, ts, s.Name(), err)
			}
			orders, err := s.GenerateOrders(ts, currentBars, b.pf)
			if err != nil {
				return nil, fmt.Errorf("%w at %v: %q generate orders: %v", ErrStrategyFault, ts, s.Name(), err)
			}
			for _, o := range orders {
				bar, ok := currentBars[o.Symbol]
				if !ok {
					continue
				}
				trade, err := b.simulator.ExecuteOrder(o, bar, b.pf)
				if err != nil {
					return nil, fmt.Errorf("executing order %d at %v: %w", o.ID, ts, err)
				}
				if trade != nil {
					b.trades = append(b.trades, trade)
				}
			}
		}
	}

	b.MetaData.DateEnded = time.Now()
	return b.calculateResults(), nil
}

func (b *BackTest) setupMetaData() error {
	if b.MetaData.ID != uuid.Nil {
		b.MetaData.DateStarted = time.Now()
		return nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	name := ""
	if len(b.strategies) > 0 {
		name = b.strategies[0].Name()
	}
	b.MetaData = RunMetaData{
		ID:          id,
		Strategy:    name,
		DateLoaded:  time.Now(),
		DateStarted: time.Now(),
	}
	return nil
}

// fetchRequiredData resolves the union of strategy symbol requirements in
// first-seen order and loads each series through the data service
func (b *BackTest) fetchRequiredData(start, end time.Time) (map[string]*kline.Series, []string, error) {
	allData := make(map[string]*kline.Series)
	var symbols []string
	for i := range b.strategies {
		for _, symbol := range b.strategies[i].RequiredSymbols() {
			if _, ok := allData[symbol]; ok {
				continue
			}
			series, err := b.dataService.Get(symbol, start, end)
			if err != nil {
				return nil, nil, err
			}
			allData[symbol] = series
			symbols = append(symbols, symbol)
		}
	}
	return allData, symbols, nil
}

// buildTimeline merges every series' timestamps into one ascending
// timeline, collapsing ties across symbols and clipping to [start, end]
func buildTimeline(allData map[string]*kline.Series, start, end time.Time) []time.Time {
	seen := make(map[int64]time.Time)
	for _, series := range allData {
		for _, ts := range series.Timestamps() {
			if ts.Before(start) || ts.After(end) {
				continue
			}
			seen[ts.UnixNano()] = ts
		}
	}
	timeline := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		timeline = append(timeline, ts)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })
	return timeline
}

// checkStopLossAndTakeProfit synthesizes protective exits for open
// positions whose originating order carries stop-loss or take-profit levels
// the current bar touched. Both triggering in one bar resolves to the stop
// loss, the worst case path.
func (b *BackTest) checkStopLossAndTakeProfit(ts time.Time, currentBars map[string]kline.Bar) error {
	for _, pos := range b.pf.Positions() {
		bar, ok := currentBars[pos.Symbol()]
		if !ok {
			continue
		}
		origin := pos.OriginatingOrder()
		if origin == nil {
			continue
		}

		var stopLossHit, takeProfitHit bool
		if origin.HasStopLoss() {
			if pos.IsLong() && bar.Low.LessThanOrEqual(origin.StopLossPrice) ||
				pos.IsShort() && bar.High.GreaterThanOrEqual(origin.StopLossPrice) {
				stopLossHit = true
			}
		}
		if !stopLossHit && origin.HasTakeProfit() {
			if pos.IsLong() && bar.High.GreaterThanOrEqual(origin.TakeProfitPrice) ||
				pos.IsShort() && bar.Low.LessThanOrEqual(origin.TakeProfitPrice) {
				takeProfitHit = true
			}
		}
		if !stopLossHit && !takeProfitHit {
			continue
		}

		// exits are synthesized at the trigger level so the fill settles at
		// the protective price, not at the bar open
		exitType := order.Stop
		trigger := origin.StopLossPrice
		if takeProfitHit {
			exitType = order.Limit
			trigger = origin.TakeProfitPrice
		}
		exit, err := order.NewTriggered(pos.Symbol(), exitType, pos.Quantity().Neg(), trigger, ts)
		if err != nil {
			return err
		}
		trade, err := b.simulator.ExecuteOrder(exit, bar, b.pf)
		if err != nil {
			return fmt.Errorf("executing protective exit for %q at %v: %w", pos.Symbol(), ts, err)
		}
		if trade == nil {
			continue
		}
		trade.StopLossHit = stopLossHit
		trade.TakeProfitHit = takeProfitHit
		b.trades = append(b.trades, trade)
	}
	return nil
}

// calculateResults aggregates the ledger per the results contract
func (b *BackTest) calculateResults() *Results {
	finalCapital := b.pf.TotalValue()
	profit := finalCapital.Sub(b.initialCapital)
	hundred := decimal.NewFromInt(100)

	r := &Results{
		InitialCapital: b.initialCapital,
		FinalCapital:   finalCapital,
		Profit:         profit,
		Trades:         b.Trades(),
		TotalTrades:    len(b.trades),
	}
	if b.initialCapital.IsPositive() {
		r.ReturnPct = profit.Div(b.initialCapital).Mul(hundred)
	}

	var totalProfit, totalLoss decimal.Decimal
	for _, t := range b.trades {
		if t.Profit.IsPositive() {
			r.WinningTrades++
			totalProfit = totalProfit.Add(t.Profit)
		} else {
			r.LosingTrades++
			totalLoss = totalLoss.Add(t.Profit.Abs())
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = decimal.NewFromInt(int64(r.WinningTrades)).
			Div(decimal.NewFromInt(int64(r.TotalTrades))).Mul(hundred)
	}
	if r.WinningTrades > 0 {
		r.AverageProfit = totalProfit.Div(decimal.NewFromInt(int64(r.WinningTrades)))
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = totalLoss.Div(decimal.NewFromInt(int64(r.LosingTrades)))
	}
	if totalLoss.IsPositive() {
		r.ProfitFactor = totalProfit.Div(totalLoss)
	}
	r.MaxDrawdown = b.calculateMaxDrawdown()
	return r
}

// calculateMaxDrawdown walks the capital-after-trade sequence against a
// running high-water mark seeded with the initial capital
func (b *BackTest) calculateMaxDrawdown() decimal.Decimal {
	highWaterMark := b.initialCapital
	var maxDrawdown decimal.Decimal
	hundred := decimal.NewFromInt(100)
	for _, t := range b.trades {
		capital := t.CapitalAfterTrade
		if capital.GreaterThan(highWaterMark) {
			highWaterMark = capital
		}
		if !highWaterMark.IsPositive() {
			continue
		}
		drawdown := highWaterMark.Sub(capital).Div(highWaterMark).Mul(hundred)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// MarshalMap renders the results as the string-keyed interchange view
func (r *Results) MarshalMap() map[string]any {
	m := map[string]any{
		"initialCapital": r.InitialCapital.InexactFloat64(),
		"finalCapital":   r.FinalCapital.InexactFloat64(),
		"profit":         r.Profit.InexactFloat64(),
		"returnPct":      r.ReturnPct.InexactFloat64(),
		"trades":         r.Trades,
		"totalTrades":    r.TotalTrades,
		"winningTrades":  r.WinningTrades,
		"losingTrades":   r.LosingTrades,
		"winRate":        r.WinRate.InexactFloat64(),
		"averageProfit":  r.AverageProfit.InexactFloat64(),
		"averageLoss":    r.AverageLoss.InexactFloat64(),
		"profitFactor":   r.ProfitFactor.InexactFloat64(),
		"maxDrawdown":    r.MaxDrawdown.InexactFloat64(),
	}
	if r.Metrics != nil {
		m["sharpeRatio"] = r.Metrics.SharpeRatio
		m["sortinoRatio"] = r.Metrics.SortinoRatio
		m["calmarRatio"] = r.Metrics.CalmarRatio
		m["expectancy"] = r.Metrics.Expectancy
	}
	return m
}
