// Package evaluator composes the engine into parallel parameter sweeps and
// walk-forward optimization. Parallelism lives exclusively here: a single
// backtest run stays single threaded, the evaluator fans independent runs
// out over a bounded worker pool and tears the pool down on the first
// failure, discarding partial results.
package evaluator

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tradepulse/gobacktester/common"
	"github.com/tradepulse/gobacktester/data"
	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/log"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/risk"
	"github.com/tradepulse/gobacktester/strategies"
)

// New returns an evaluator over the shared data service with a worker pool
// sized max(1, cores-1)
func New(dataService *data.Service) (*Evaluator, error) {
	if dataService == nil {
		return nil, fmt.Errorf("%w: data service", common.ErrNilPointer)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Evaluator{
		dataService: dataService,
		workers:     maxWorkers(),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

func maxWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Shutdown cancels outstanding tasks and releases the worker pool. The
// evaluator accepts no further work afterwards.
func (e *Evaluator) Shutdown() {
	e.cancel()
}

// EvaluateParameters backtests every parameter set over [start, end] and
// returns the outcomes sorted by descending total return. Market data is
// fetched once up front; each task then builds its own strategy, engine and
// portfolio so no mutable state crosses tasks. The first task error cancels
// the remaining tasks and is returned; partial results are discarded.
func (e *Evaluator) EvaluateParameters(ctx context.Context, factory strategies.Factory, parameterSets []map[string]any, symbol string, start, end time.Time, settings Settings) ([]*Result, error) {
	if factory == nil {
		return nil, errNilFactory
	}
	if len(parameterSets) == 0 {
		return nil, errNoParameterSets
	}
	if err := e.ctx.Err(); err != nil {
		return nil, ErrShutdown
	}

	// warm the shared cache so tasks read instead of racing the loader
	if _, err := e.dataService.Get(symbol, start, end); err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(mergeDone(ctx, e.ctx))
	g.SetLimit(e.workers)
	results := make([]*Result, len(parameterSets))
	for i := range parameterSets {
		i := i
		params := parameterSets[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := e.runOnce(factory, params, symbol, start, end, settings)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.TotalReturn > results[j].Metrics.TotalReturn
	})
	return results, nil
}

// runOnce executes a single fully isolated backtest for one parameter set
func (e *Evaluator) runOnce(factory strategies.Factory, params map[string]any, symbol string, start, end time.Time, settings Settings) (*Result, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	strategy, err := factory(symbol, params)
	if err != nil {
		return nil, fmt.Errorf("building strategy for %v: %w", params, err)
	}
	bt, err := engine.New(e.dataService, settings.InitialCapital)
	if err != nil {
		return nil, err
	}
	bt.SetCommissionRate(settings.CommissionRate)
	bt.SetSlippage(settings.Slippage)
	if err := bt.AddStrategy(strategy); err != nil {
		return nil, err
	}

	results, err := bt.Run(start, end)
	if err != nil {
		return nil, fmt.Errorf("backtest for %v: %w", params, err)
	}
	results.Metrics = risk.NewAnalyzer().CalculateMetrics(results.Trades, settings.InitialCapital)

	return &Result{
		ID:         id,
		Parameters: params,
		Results:    results,
		Metrics:    results.Metrics,
		Trades:     results.Trades,
	}, nil
}

// WalkForwardOptimization splits [start, end] into consecutive windows of
// trainDays+testDays, sweeps the training leg of each, re-runs the winning
// parameters over the unseen test leg and aggregates the test ledgers. The
// trailing partial window is discarded.
func (e *Evaluator) WalkForwardOptimization(ctx context.Context, factory strategies.Factory, parameterSets []map[string]any, symbol string, start, end time.Time, trainDays, testDays int, settings Settings) (*WalkForwardResult, error) {
	if trainDays <= 0 || testDays <= 0 {
		return nil, fmt.Errorf("%w: train %d test %d", errNoWindows, trainDays, testDays)
	}
	windows := buildWindows(start, end, trainDays, testDays)
	if len(windows) == 0 {
		return nil, errNoWindows
	}

	out := &WalkForwardResult{
		ParameterUsage: make(map[string]map[string]int),
	}
	firstSeen := make(map[string][]string)
	var allTrades []*portfolio.Trade

	for i, window := range windows {
		log.Infof(log.Evaluator, "walk-forward window %d/%d: train %s..%s test %s..%s",
			i+1, len(windows),
			window.TrainStart.Format(time.DateOnly), window.TrainEnd.Format(time.DateOnly),
			window.TestStart.Format(time.DateOnly), window.TestEnd.Format(time.DateOnly))

		trainResults, err := e.EvaluateParameters(ctx, factory, parameterSets, symbol, window.TrainStart, window.TrainEnd, settings)
		if err != nil {
			return nil, fmt.Errorf("training window %d: %w", i+1, err)
		}
		best := trainResults[0].Parameters
		countUsage(out.ParameterUsage, firstSeen, best)

		testResult, err := e.runOnce(factory, best, symbol, window.TestStart, window.TestEnd, settings)
		if err != nil {
			return nil, fmt.Errorf("test window %d: %w", i+1, err)
		}

		out.Windows = append(out.Windows, WindowResult{
			Window:         window,
			BestParameters: best,
			TestMetrics:    testResult.Metrics,
			TestTrades:     testResult.Trades,
		})
		allTrades = append(allTrades, testResult.Trades...)
	}

	out.OverallMetrics = risk.NewAnalyzer().CalculateMetrics(allTrades, settings.InitialCapital)
	out.BestParameters = mostFrequent(out.ParameterUsage, firstSeen, parameterSets)
	return out, nil
}

// buildWindows lays consecutive non-overlapping train+test windows over
// [start, end], dropping the trailing partial window
func buildWindows(start, end time.Time, trainDays, testDays int) []Window {
	var windows []Window
	span := time.Duration(trainDays+testDays) * 24 * time.Hour
	for current := start; current.Add(span).Before(end); {
		trainEnd := current.Add(time.Duration(trainDays) * 24 * time.Hour)
		testEnd := trainEnd.Add(time.Duration(testDays) * 24 * time.Hour)
		windows = append(windows, Window{
			TrainStart: current,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
		})
		current = testEnd
	}
	return windows
}

// countUsage tallies each winning parameter value, remembering first-seen
// order for tie resolution
func countUsage(usage map[string]map[string]int, firstSeen map[string][]string, params map[string]any) {
	for name, value := range params {
		rendered := fmt.Sprintf("%v", value)
		if usage[name] == nil {
			usage[name] = make(map[string]int)
		}
		if _, seen := usage[name][rendered]; !seen {
			firstSeen[name] = append(firstSeen[name], rendered)
		}
		usage[name][rendered]++
	}
}

// mostFrequent resolves each parameter to its most frequently winning
// value; ties break in favour of the value seen first. The resolved value
// is looked up from the original parameter sets so it keeps its type.
func mostFrequent(usage map[string]map[string]int, firstSeen map[string][]string, parameterSets []map[string]any) map[string]any {
	best := make(map[string]any, len(usage))
	for name, counts := range usage {
		var winner string
		top := -1
		for _, rendered := range firstSeen[name] {
			if counts[rendered] > top {
				top = counts[rendered]
				winner = rendered
			}
		}
		best[name] = typedValue(parameterSets, name, winner)
	}
	return best
}

// typedValue recovers the original typed parameter value whose rendering
// matches; falls back to the rendered string
func typedValue(parameterSets []map[string]any, name, rendered string) any {
	for _, set := range parameterSets {
		if v, ok := set[name]; ok && fmt.Sprintf("%v", v) == rendered {
			return v
		}
	}
	return rendered
}

// mergeDone returns a context cancelled when either input is
func mergeDone(a, b context.Context) context.Context {
	if b.Done() == nil {
		return a
	}
	ctx, cancel := context.WithCancel(a)
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
