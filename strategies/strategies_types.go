package strategies

import (
	"errors"
	"time"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/order"
	"github.com/tradepulse/gobacktester/portfolio"
)

var (
	// ErrStrategyNotFound is returned when a factory lookup fails
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrNoDataForSymbol is returned when a strategy's symbol is absent from
	// the initialization data
	ErrNoDataForSymbol = errors.New("no data for required symbol")
)

// Handler is the contract every strategy fulfils. Strategies must be
// deterministic functions of their declared inputs and internal state. They
// never mutate the portfolio directly; every effect flows through the
// orders returned from GenerateOrders.
type Handler interface {
	// Name identifies the strategy including its active parameters
	Name() string
	// RequiredSymbols lists the symbols the engine must fetch
	RequiredSymbols() []string
	// Initialize hands the strategy its historical data before the run
	Initialize(data map[string]*kline.Series) error
	// OnBar is invoked once per timeline tick before order generation
	OnBar(ts time.Time, currentBars map[string]kline.Bar, pf *portfolio.Portfolio) error
	// GenerateOrders returns the orders to route this tick, in execution
	// order
	GenerateOrders(ts time.Time, currentBars map[string]kline.Bar, pf *portfolio.Portfolio) ([]*order.Order, error)
	// Parameters returns the runtime-reflected view of the strategy's
	// typed configuration
	Parameters() map[string]any
	// SetParameter applies a single configuration value by name
	SetParameter(name string, value any) error
}

// Factory builds a fresh strategy instance for the symbol from a parameter
// set. The evaluator calls it once per task so no two tasks share state.
type Factory func(symbol string, params map[string]any) (Handler, error)
