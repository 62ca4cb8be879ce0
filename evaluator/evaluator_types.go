package evaluator

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/data"
	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/risk"
)

var (
	// ErrShutdown is returned when work is submitted after Shutdown
	ErrShutdown = errors.New("evaluator has been shut down")

	errNilFactory      = errors.New("strategy factory is nil")
	errNoParameterSets = errors.New("no parameter sets to evaluate")
	errNoWindows       = errors.New("range too short for any train/test window")
)

// Settings carries the run parameters shared by every task of a sweep
type Settings struct {
	InitialCapital decimal.Decimal
	CommissionRate decimal.Decimal
	Slippage       decimal.Decimal
}

// Evaluator runs independent backtests in parallel over a bounded worker
// pool. Tasks share only the read-only market data cache; each owns its
// strategy, engine, portfolio and ledger.
type Evaluator struct {
	dataService *data.Service
	workers     int

	ctx    context.Context
	cancel context.CancelFunc
}

// Result is the outcome of one parameter set's backtest
type Result struct {
	ID         uuid.UUID
	Parameters map[string]any
	Results    *engine.Results
	Metrics    *risk.Metrics
	Trades     []*portfolio.Trade
}

// Window is one walk-forward train/test split
type Window struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// WindowResult holds the test leg outcome of one walk-forward window
type WindowResult struct {
	Window         Window
	BestParameters map[string]any
	TestMetrics    *risk.Metrics
	TestTrades     []*portfolio.Trade
}

// WalkForwardResult aggregates a full walk-forward optimization
type WalkForwardResult struct {
	Windows        []WindowResult
	OverallMetrics *risk.Metrics
	// ParameterUsage counts how often each parameter value won a training
	// window, keyed parameter name then rendered value
	ParameterUsage map[string]map[string]int
	// BestParameters maps each parameter to its most frequently winning
	// value, ties resolved in favour of the first seen
	BestParameters map[string]any
}
