package log

import (
	"io"
	"os"
	"sync"
)

const (
	levelDebug uint8 = 1 << iota
	levelInfo
	levelWarn
	levelError
)

// SubLogger identifies the subsystem a log event belongs to. Subsystems
// register once at package init and may be muted individually.
type SubLogger struct {
	name   string
	levels uint8
}

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout

	subLoggers = map[string]*SubLogger{}

	// Global covers events not tied to a subsystem
	Global = registerSubLogger("LOG")
	// Engine covers the backtest event loop
	Engine = registerSubLogger("ENGINE")
	// Exchange covers order execution
	Exchange = registerSubLogger("EXCHANGE")
	// Data covers market data loading and caching
	Data = registerSubLogger("DATA")
	// Evaluator covers parameter sweeps and walk-forward runs
	Evaluator = registerSubLogger("EVALUATOR")
	// Report covers result rendering and persistence
	Report = registerSubLogger("REPORT")
)
