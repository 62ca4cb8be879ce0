// Package script runs user-supplied Tengo scripts as strategies. A script
// is evaluated once per tick with the observed close history, the current
// price and the open position quantity bound as globals, and communicates
// back through a signal variable:
//
//	signal := 0
//	if len(closes) > 20 && price > closes[len(closes)-2] {
//	    signal = 1            // enter or hold a long position
//	}
//	// signal = -1 flattens any open position
//	// stop_loss_pct / take_profit_pct attach exit levels to entries
//
// Scripts are deterministic functions of their bound inputs; nothing else
// is importable.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/strategies"
	"github.com/tradepulse/gobacktester/strategies/base"
)

const (
	// Name is the strategy name
	Name = "script"

	positionSizeKey = "position-size"
)

// Strategy is an implementation of the strategies.Handler interface backed
// by a compiled Tengo script
type Strategy struct {
	base.Strategy

	scriptName string
	compiled   *tengo.Compiled
	series     *kline.Series
}

// New compiles source and returns a strategy trading symbol. The supplied
// name is only used for display.
func New(symbol, name string, source []byte, positionSize float64) (*Strategy, error) {
	scr := tengo.NewScript(source)
	for _, global := range []string{"closes", "price", "position"} {
		if err := scr.Add(global, nil); err != nil {
			return nil, fmt.Errorf("binding %q: %w", global, err)
		}
	}
	compiled, err := scr.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling strategy script %q: %w", name, err)
	}
	s := &Strategy{
		scriptName: name,
		compiled:   compiled,
	}
	s.SetSymbol(symbol)
	s.PositionSize = positionSize
	return s, nil
}

// Name returns the name of the strategy with its script
func (s *Strategy) Name() string {
	return fmt.Sprintf("%s (%s)", Name, s.scriptName)
}

// Initialize stores the historical series for the traded symbol
func (s *Strategy) Initialize(data map[string]*kline.Series) error {
	series, ok := data[s.Symbol()]
	if !ok || series.Len() == 0 {
		return fmt.Errorf("%w: %q", strategies.ErrNoDataForSymbol, s.Symbol())
	}
	s.series = series
	return nil
}

// OnBar has no bookkeeping; the script observes state in GenerateOrders
func (s *Strategy) OnBar(_ time.Time, _ map[string]kline.Bar, _ *portfolio.Portfolio) error {
	return nil
}

// GenerateOrders evaluates the script against the history observed so far
// and converts its signal into orders
func (s *Strategy) GenerateOrders(ts time.Time, currentBars map[string]kline.Bar, pf *portfolio.Portfolio) ([]*order.Order, error) {
	bar, ok := currentBars[s.Symbol()]
	if !ok {
		return nil, nil
	}

	window := s.series.SubSeries(time.Time{}, ts)
	closes := make([]interface{}, window.Len())
	for i, c := range window.GetOHLC().Close {
		closes[i] = c
	}
	var positionQuantity float64
	if pos, held := pf.Position(s.Symbol()); held {
		positionQuantity = pos.Quantity().InexactFloat64()
	}

	run := s.compiled.Clone()
	if err := run.Set("closes", closes); err != nil {
		return nil, err
	}
	if err := run.Set("price", bar.Close.InexactFloat64()); err != nil {
		return nil, err
	}
	if err := run.Set("position", positionQuantity); err != nil {
		return nil, err
	}
	if err := run.RunContext(context.Background()); err != nil {
		return nil, fmt.Errorf("script %q at %v: %w", s.scriptName, ts, err)
	}

	signal := getInt(run, "signal")
	switch {
	case signal > 0 && positionQuantity <= 0:
		stopLoss := getFloat(run, "stop_loss_pct")
		takeProfit := getFloat(run, "take_profit_pct")
		var orders []*order.Order
		if exit := s.MarketExit(pf, ts); exit != nil {
			orders = append(orders, exit)
		}
		if entry := s.MarketEntry(pf, ts, bar.Close, stopLoss, takeProfit); entry != nil {
			orders = append(orders, entry)
		}
		return orders, nil
	case signal < 0 && positionQuantity > 0:
		if exit := s.MarketExit(pf, ts); exit != nil {
			return []*order.Order{exit}, nil
		}
	}
	return nil, nil
}

func getInt(run *tengo.Compiled, name string) int {
	if v := run.Get(name); v != nil {
		return v.Int()
	}
	return 0
}

func getFloat(run *tengo.Compiled, name string) float64 {
	if v := run.Get(name); v != nil {
		return v.Float()
	}
	return 0
}

// Parameters returns the runtime-reflected view of the configuration
func (s *Strategy) Parameters() map[string]any {
	return map[string]any{
		positionSizeKey: s.PositionSize,
	}
}

// SetParameter applies a single configuration value by name
func (s *Strategy) SetParameter(name string, value any) error {
	switch name {
	case positionSizeKey:
		v, err := base.ToFloat(name, value)
		if err != nil {
			return err
		}
		s.PositionSize = v
		return nil
	}
	return fmt.Errorf("%w: unrecognised key %q", base.ErrInvalidCustomSettings, name)
}
