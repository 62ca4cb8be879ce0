// Package crossover implements a moving average crossover strategy. A
// bullish cross of the fast average over the slow average closes any short
// exposure and opens a sized long position; a bearish cross closes the
// long. Short entries exist behind the disabled-by-default shorts hook.
package crossover

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/indicators"
	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/strategies"
	"github.com/tradepulse/gobacktester/strategies/base"
)

const (
	// Name is the strategy name
	Name = "ma-crossover"

	fastPeriodKey        = "fast-period"
	slowPeriodKey        = "slow-period"
	useEMAKey            = "use-ema"
	positionSizeKey      = "position-size"
	stopLossPercentKey   = "stop-loss-percent"
	takeProfitPercentKey = "take-profit-percent"
)

// Config is the typed parameter record for the strategy
type Config struct {
	FastPeriod        int
	SlowPeriod        int
	UseEMA            bool
	PositionSize      float64
	StopLossPercent   float64
	TakeProfitPercent float64
}

// DefaultConfig mirrors the conventional 12/26 setup
func DefaultConfig() Config {
	return Config{
		FastPeriod:   12,
		SlowPeriod:   26,
		PositionSize: 0.1,
	}
}

// Strategy is an implementation of the strategies.Handler interface
type Strategy struct {
	base.Strategy
	cfg Config

	series         *kline.Series
	prevCrossAbove bool
	crossSeen      bool
}

// New returns a crossover strategy trading symbol
func New(symbol string, cfg Config) (*Strategy, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("%w: fast %d must be positive and below slow %d",
			base.ErrInvalidCustomSettings, cfg.FastPeriod, cfg.SlowPeriod)
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
	kind := "SMA"
	if s.cfg.UseEMA {
		kind = "EMA"
	}
	return fmt.Sprintf("%s (%s, %d, %d)", Name, kind, s.cfg.FastPeriod, s.cfg.SlowPeriod)
}

// Initialize stores the historical series for the traded symbol
func (s *Strategy) Initialize(data map[string]*kline.Series) error {
	series, ok := data[s.Symbol()]
	if !ok || series.Len() == 0 {
		return fmt.Errorf("%w: %q", strategies.ErrNoDataForSymbol, s.Symbol())
	}
	s.series = series
	s.prevCrossAbove = false
	s.crossSeen = false
	return nil
}

// OnBar has no bookkeeping for this strategy; cross state advances in
// GenerateOrders so the signal and the order derive from the same values
func (s *Strategy) OnBar(_ time.Time, _ map[string]kline.Bar, _ *portfolio.Portfolio) error {
	return nil
}

// GenerateOrders emits entries and exits on moving average crosses
func (s *Strategy) GenerateOrders(ts time.Time, currentBars map[string]kline.Bar, pf *portfolio.Portfolio) ([]*order.Order, error) {
	bar, ok := currentBars[s.Symbol()]
	if !ok {
		return nil, nil
	}

	fast, slow, ok := s.averagesAt(ts)
	if !ok {
		return nil, nil
	}
	isCrossAbove := fast > slow
	if !s.crossSeen {
		s.crossSeen = true
		s.prevCrossAbove = isCrossAbove
		return nil, nil
	}
	if isCrossAbove == s.prevCrossAbove {
		return nil, nil
	}
	s.prevCrossAbove = isCrossAbove

	var orders []*order.Order
	if isCrossAbove {
		if pos, held := pf.Position(s.Symbol()); held && pos.IsShort() {
			if exit := s.MarketExit(pf, ts); exit != nil {
				orders = append(orders, exit)
			}
		}
		if entry := s.MarketEntry(pf, ts, bar.Close, s.cfg.StopLossPercent, s.cfg.TakeProfitPercent); entry != nil {
			orders = append(orders, entry)
		}
		return orders, nil
	}

	if pos, held := pf.Position(s.Symbol()); held && pos.IsLong() {
		if exit := s.MarketExit(pf, ts); exit != nil {
			orders = append(orders, exit)
		}
	}
	if s.AllowShorts() {
		if entry := s.shortEntry(pf, ts, bar.Close); entry != nil {
			orders = append(orders, entry)
		}
	}
	return orders, nil
}

// averagesAt computes the fast and slow averages over the bars observed up
// to and including ts
func (s *Strategy) averagesAt(ts time.Time) (fast, slow float64, ok bool) {
	window := s.series.SubSeries(time.Time{}, ts)
	if window.Len() < s.cfg.SlowPeriod {
		return 0, 0, false
	}
	var fastInd, slowInd indicators.Indicator
	if s.cfg.UseEMA {
		fastInd = indicators.EMA{Period: s.cfg.FastPeriod}
		slowInd = indicators.EMA{Period: s.cfg.SlowPeriod}
	} else {
		fastInd = indicators.SMA{Period: s.cfg.FastPeriod}
		slowInd = indicators.SMA{Period: s.cfg.SlowPeriod}
	}
	fastValues := fastInd.Calculate(window)
	slowValues := slowInd.Calculate(window)
	fast = fastValues[len(fastValues)-1]
	slow = slowValues[len(slowValues)-1]
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return 0, 0, false
	}
	return fast, slow, true
}

// shortEntry mirrors MarketEntry with inverted exit levels. Reached only
// when shorts are enabled.
func (s *Strategy) shortEntry(pf *portfolio.Portfolio, ts time.Time, price decimal.Decimal) *order.Order {
	quantity := s.SizedQuantity(pf, price)
	if quantity.IsZero() {
		return nil
	}
	entry, err := order.New(s.Symbol(), quantity.Neg(), ts)
	if err != nil {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	if s.cfg.StopLossPercent > 0 {
		entry.StopLossPrice = price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(s.cfg.StopLossPercent).Div(hundred)))
	}
	if s.cfg.TakeProfitPercent > 0 {
		entry.TakeProfitPrice = price.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(s.cfg.TakeProfitPercent).Div(hundred)))
	}
	return entry
}

// Parameters returns the runtime-reflected view of the configuration
func (s *Strategy) Parameters() map[string]any {
	return map[string]any{
		fastPeriodKey:        s.cfg.FastPeriod,
		slowPeriodKey:        s.cfg.SlowPeriod,
		useEMAKey:            s.cfg.UseEMA,
		positionSizeKey:      s.cfg.PositionSize,
		stopLossPercentKey:   s.cfg.StopLossPercent,
		takeProfitPercentKey: s.cfg.TakeProfitPercent,
	}
}

// SetParameter applies a single configuration value by name
func (s *Strategy) SetParameter(name string, value any) error {
	var err error
	switch name {
	case fastPeriodKey:
		s.cfg.FastPeriod, err = base.ToInt(name, value)
	case slowPeriodKey:
		s.cfg.SlowPeriod, err = base.ToInt(name, value)
	case useEMAKey:
		s.cfg.UseEMA, err = base.ToBool(name, value)
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
