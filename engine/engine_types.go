package engine

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/data"
	"github.com/tradepulse/gobacktester/exchange"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/risk"
	"github.com/tradepulse/gobacktester/strategies"
)

var (
	// Default execution drag applied when a backtest does not override them
	DefaultCommissionRate = decimal.NewFromFloat(0.001)
	DefaultSlippage       = decimal.NewFromFloat(0.001)

	// ErrStrategyFault wraps an error raised by a strategy mid-run; the run
	// aborts carrying the offending timestamp
	ErrStrategyFault = errors.New("strategy fault")

	errNilStrategy    = errors.New("strategy is nil")
	errNilDataService = errors.New("data service is nil")
)

// BackTest drives a single deterministic simulation run: it owns the
// portfolio, the execution simulator and the ledger of closed trades. One
// BackTest must not be shared across goroutines.
type BackTest struct {
	MetaData RunMetaData

	dataService    *data.Service
	simulator      *exchange.Simulator
	pf             *portfolio.Portfolio
	strategies     []strategies.Handler
	initialCapital decimal.Decimal
	commissionRate decimal.Decimal
	slippage       decimal.Decimal
	trades         []*portfolio.Trade
}

// RunMetaData describes a tracked backtest run
type RunMetaData struct {
	ID          uuid.UUID
	Strategy    string
	DateLoaded  time.Time
	DateStarted time.Time
	DateEnded   time.Time
}

// Results is the aggregate outcome of one run. MaxDrawdown is a percentage
// in [0, 100]; ProfitFactor is zero when the run had no losing trades (the
// risk analyzer's metrics use an infinity sentinel instead).
type Results struct {
	InitialCapital decimal.Decimal    `json:"initial-capital"`
	FinalCapital   decimal.Decimal    `json:"final-capital"`
	Profit         decimal.Decimal    `json:"profit"`
	ReturnPct      decimal.Decimal    `json:"return-pct"`
	Trades         []*portfolio.Trade `json:"trades"`
	TotalTrades    int                `json:"total-trades"`
	WinningTrades  int                `json:"winning-trades"`
	LosingTrades   int                `json:"losing-trades"`
	WinRate        decimal.Decimal    `json:"win-rate"`
	AverageProfit  decimal.Decimal    `json:"average-profit"`
	AverageLoss    decimal.Decimal    `json:"average-loss"`
	ProfitFactor   decimal.Decimal    `json:"profit-factor"`
	MaxDrawdown    decimal.Decimal    `json:"max-drawdown"`

	// Metrics is attached when a risk analyzer pass has run over the ledger
	Metrics *risk.Metrics `json:"metrics,omitempty"`
}
