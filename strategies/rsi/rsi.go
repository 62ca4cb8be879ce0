// Package rsi implements a relative strength index reversal strategy: it
// buys when the index climbs back out of the oversold band and exits the
// long when the index drops back from the overbought band.
package rsi

import (
	"fmt"
	"math"
	"time"

	"github.com/tradepulse/gobacktester/indicators"
	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/strategies"
	"github.com/tradepulse/gobacktester/strategies/base"
)

const (
	// Name is the strategy name
	Name = "rsi"

	periodKey            = "rsi-period"
	oversoldKey          = "rsi-low"
	overboughtKey        = "rsi-high"
	positionSizeKey      = "position-size"
	stopLossPercentKey   = "stop-loss-percent"
	takeProfitPercentKey = "take-profit-percent"
)

// Config is the typed parameter record for the strategy
type Config struct {
	Period            int
	Oversold          float64
	Overbought        float64
	PositionSize      float64
	StopLossPercent   float64
	TakeProfitPercent float64
}

// DefaultConfig mirrors the conventional 14/30/70 setup
func DefaultConfig() Config {
	return Config{
		Period:       14,
		Oversold:     30,
		Overbought:   70,
		PositionSize: 0.1,
	}
}

// Strategy is an implementation of the strategies.Handler interface
type Strategy struct {
	base.Strategy
	cfg Config

	series        *kline.Series
	wasOversold   bool
	wasOverbought bool
}

// New returns an RSI strategy trading symbol
func New(symbol string, cfg Config) (*Strategy, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: rsi period %d must be positive", base.ErrInvalidCustomSettings, cfg.Period)
	}
	if cfg.Oversold <= 0 || cfg.Overbought <= cfg.Oversold {
		return nil, fmt.Errorf("%w: oversold %v / overbought %v", base.ErrInvalidCustomSettings, cfg.Oversold, cfg.Overbought)
	}
	s := &Strategy{cfg: cfg}
	s.SetSymbol(symbol)
	s.PositionSize = cfg.PositionSize
	return s, nil
}

// Factory builds a strategy from an untyped parameter set, for use by the
// evaluator
func Factory(symbol string, params map[string]any) (strategies.Handler, error) {
	s, err := New(symbol, DefaultConfig())
	if err != nil {
		return nil, err
	}
	for k, v := range params {
		if err := s.SetParameter(k, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name returns the name of the strategy with its active configuration
func (s *Strategy) Name() string {
	return fmt.Sprintf("%s (RSI(%d), %v, %v)", Name, s.cfg.Period, s.cfg.Oversold, s.cfg.Overbought)
}

// Initialize stores the historical series for the traded symbol
func (s *Strategy) Initialize(data map[string]*kline.Series) error {
	series, ok := data[s.Symbol()]
	if !ok || series.Len() == 0 {
		return fmt.Errorf("%w: %q", strategies.ErrNoDataForSymbol, s.Symbol())
	}
	s.series = series
	s.wasOversold = false
	s.wasOverbought = false
	return nil
}

// OnBar has no bookkeeping for this strategy
func (s *Strategy) OnBar(_ time.Time, _ map[string]kline.Bar, _ *portfolio.Portfolio) error {
	return nil
}

// GenerateOrders enters on an oversold recovery and exits on an overbought
// fade
func (s *Strategy) GenerateOrders(ts time.Time, currentBars map[string]kline.Bar, pf *portfolio.Portfolio) ([]*order.Order, error) {
	bar, ok := currentBars[s.Symbol()]
	if !ok {
		return nil, nil
	}

	value, ok := s.rsiAt(ts)
	if !ok {
		return nil, nil
	}
	isOversold := value <= s.cfg.Oversold
	isOverbought := value >= s.cfg.Overbought

	var orders []*order.Order
	switch {
	case s.wasOversold && !isOversold:
		if pos, held := pf.Position(s.Symbol()); held && pos.IsShort() {
			if exit := s.MarketExit(pf, ts); exit != nil {
				orders = append(orders, exit)
			}
		}
		if pos, held := pf.Position(s.Symbol()); !held || !pos.IsLong() {
			if entry := s.MarketEntry(pf, ts, bar.Close, s.cfg.StopLossPercent, s.cfg.TakeProfitPercent); entry != nil {
				orders = append(orders, entry)
			}
		}
	case s.wasOverbought && !isOverbought:
		if pos, held := pf.Position(s.Symbol()); held && pos.IsLong() {
			if exit := s.MarketExit(pf, ts); exit != nil {
				orders = append(orders, exit)
			}
		}
	}

	s.wasOversold = isOversold
	s.wasOverbought = isOverbought
	return orders, nil
}

// rsiAt computes the RSI over the bars observed up to and including ts
func (s *Strategy) rsiAt(ts time.Time) (float64, bool) {
	window := s.series.SubSeries(time.Time{}, ts)
	if window.Len() <= s.cfg.Period {
		return 0, false
	}
	values := indicators.RSI{Period: s.cfg.Period}.Calculate(window)
	last := values[len(values)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

// Parameters returns the runtime-reflected view of the configuration
func (s *Strategy) Parameters() map[string]any {
	return map[string]any{
		periodKey:            s.cfg.Period,
		oversoldKey:          s.cfg.Oversold,
		overboughtKey:        s.cfg.Overbought,
		positionSizeKey:      s.cfg.PositionSize,
		stopLossPercentKey:   s.cfg.StopLossPercent,
		takeProfitPercentKey: s.cfg.TakeProfitPercent,
	}
}

// SetParameter applies a single configuration value by name
func (s *Strategy) SetParameter(name string, value any) error {
	var err error
	switch name {
	case periodKey:
		s.cfg.Period, err = base.ToInt(name, value)
	case oversoldKey:
		s.cfg.Oversold, err = base.ToFloat(name, value)
	case overboughtKey:
		s.cfg.Overbought, err = base.ToFloat(name, value)
	case positionSizeKey:
		s.cfg.PositionSize, err = base.ToFloat(name, value)
		s.PositionSize = s.cfg.PositionSize
	case stopLossPercentKey:
		s.cfg.StopLossPercent, err = base.ToFloat(name, value)
	case takeProfitPercentKey:
		s.cfg.TakeProfitPercent, err = base.ToFloat(name, value)
	default:
		return fmt.Errorf("%w: unrecognised key %q", base.ErrInvalidCustomSettings, name)
	}
	return err
}
