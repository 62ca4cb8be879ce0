package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/tradepulse/gobacktester/config"
	"github.com/tradepulse/gobacktester/data"
	"github.com/tradepulse/gobacktester/data/csv"
	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/evaluator"
	"github.com/tradepulse/gobacktester/report"
	"github.com/tradepulse/gobacktester/risk"
	"github.com/tradepulse/gobacktester/store"
	"github.com/tradepulse/gobacktester/strategies"
	"github.com/tradepulse/gobacktester/strategies/crossover"
	"github.com/tradepulse/gobacktester/strategies/rsi"
	"github.com/tradepulse/gobacktester/strategies/script"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the configuration file",
		Value:   "config.json",
	}
	startFlag = &cli.StringFlag{
		Name:     "start",
		Usage:    "simulation start date (YYYY-MM-DD)",
		Required: true,
	}
	endFlag = &cli.StringFlag{
		Name:     "end",
		Usage:    "simulation end date (YYYY-MM-DD), inclusive",
		Required: true,
	}
)

func main() {
	app := &cli.App{
		Name:  "gobacktester",
		Usage: "replay historical bars against trading strategies",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a single backtest",
				Flags: []cli.Flag{
					configFlag, startFlag, endFlag,
					&cli.BoolFlag{Name: "trades", Usage: "print the closed trade ledger"},
					&cli.BoolFlag{Name: "persist", Usage: "save the run to the results database"},
				},
				Action: runBacktest,
			},
			{
				Name:  "sweep",
				Usage: "evaluate a grid of parameter sets in parallel",
				Flags: []cli.Flag{
					configFlag, startFlag, endFlag,
					&cli.StringFlag{
						Name:     "grid",
						Usage:    "JSON array of parameter sets to evaluate",
						Required: true,
					},
				},
				Action: runSweep,
			},
			{
				Name:  "walkforward",
				Usage: "walk-forward optimization over rolling train/test windows",
				Flags: []cli.Flag{
					configFlag, startFlag, endFlag,
					&cli.StringFlag{Name: "grid", Usage: "JSON array of parameter sets", Required: true},
					&cli.IntFlag{Name: "train-days", Value: 180, Usage: "days per training window"},
					&cli.IntFlag{Name: "test-days", Value: 60, Usage: "days per test window"},
				},
				Action: runWalkForward,
			},
			{
				Name:   "list",
				Usage:  "list persisted runs",
				Flags:  []cli.Flag{configFlag},
				Action: listRuns,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, *data.Service, time.Time, time.Time, error) {
	cfg, err := config.ReadConfigFromFile(c.String("config"))
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	service, err := data.NewService(csv.NewLoader(cfg.DataDirectory, cfg.TimeFormat))
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	start, err := time.Parse(time.DateOnly, c.String("start"))
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, fmt.Errorf("parsing start date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, c.String("end"))
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, fmt.Errorf("parsing end date: %w", err)
	}
	// the end date is inclusive of its intraday bars
	end = end.Add(24*time.Hour - time.Second)
	return cfg, service, start, end, nil
}

// buildStrategy resolves the configured strategy block into an instance
func buildStrategy(cfg *config.Config) (strategies.Handler, error) {
	settings := cfg.Strategy
	if settings.Name == "" {
		return nil, config.ErrNoStrategySettings
	}
	if settings.Name == script.Name {
		file, _ := settings.Parameters["script-file"].(string)
		if file == "" {
			return nil, fmt.Errorf("%w: script strategy needs a script-file parameter", config.ErrNoStrategySettings)
		}
		source, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		positionSize := 0.1
		if v, ok := settings.Parameters["position-size"].(float64); ok {
			positionSize = v
		}
		return script.New(settings.Symbol, file, source, positionSize)
	}
	factory, err := factoryFor(settings.Name)
	if err != nil {
		return nil, err
	}
	return factory(settings.Symbol, settings.Parameters)
}

func factoryFor(name string) (strategies.Factory, error) {
	switch name {
	case crossover.Name:
		return crossover.Factory, nil
	case rsi.Name:
		return rsi.Factory, nil
	}
	return nil, fmt.Errorf("%w: %q", strategies.ErrStrategyNotFound, name)
}

func runBacktest(c *cli.Context) error {
	cfg, service, start, end, err := setup(c)
	if err != nil {
		return err
	}
	strategy, err := buildStrategy(cfg)
	if err != nil {
		return err
	}

	bt, err := engine.New(service, decimal.NewFromFloat(cfg.InitialCapital))
	if err != nil {
		return err
	}
	bt.SetCommissionRate(decimal.NewFromFloat(cfg.CommissionRate))
	bt.SetSlippage(decimal.NewFromFloat(cfg.Slippage))
	if err := bt.AddStrategy(strategy); err != nil {
		return err
	}

	results, err := bt.Run(start, end)
	if err != nil {
		return err
	}
	analyzer := &risk.Analyzer{
		RiskFreeRate:   cfg.RiskFreeRate,
		PeriodsPerYear: cfg.PeriodsPerYear,
	}
	results.Metrics = analyzer.CalculateMetrics(results.Trades, results.InitialCapital)

	if err := report.WriteResults(os.Stdout, strategy.Name(), results); err != nil {
		return err
	}
	if c.Bool("trades") {
		if err := report.WriteTrades(os.Stdout, results.Trades); err != nil {
			return err
		}
	}
	if c.Bool("persist") && cfg.Database.Enabled {
		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.SaveRun(bt.MetaData, start, end, results)
	}
	return nil
}

func parseGrid(raw string) ([]map[string]any, error) {
	var grid []map[string]any
	if err := json.Unmarshal([]byte(raw), &grid); err != nil {
		return nil, fmt.Errorf("parsing parameter grid: %w", err)
	}
	return grid, nil
}

func runSweep(c *cli.Context) error {
	cfg, service, start, end, err := setup(c)
	if err != nil {
		return err
	}
	grid, err := parseGrid(c.String("grid"))
	if err != nil {
		return err
	}
	factory, err := factoryFor(cfg.Strategy.Name)
	if err != nil {
		return err
	}

	eval, err := evaluator.New(service)
	if err != nil {
		return err
	}
	defer eval.Shutdown()

	results, err := eval.EvaluateParameters(context.Background(), factory, grid,
		cfg.Strategy.Symbol, start, end, evaluator.Settings{
			InitialCapital: decimal.NewFromFloat(cfg.InitialCapital),
			CommissionRate: decimal.NewFromFloat(cfg.CommissionRate),
			Slippage:       decimal.NewFromFloat(cfg.Slippage),
		})
	if err != nil {
		return err
	}
	return report.WriteSweep(os.Stdout, results)
}

func runWalkForward(c *cli.Context) error {
	cfg, service, start, end, err := setup(c)
	if err != nil {
		return err
	}
	grid, err := parseGrid(c.String("grid"))
	if err != nil {
		return err
	}
	factory, err := factoryFor(cfg.Strategy.Name)
	if err != nil {
		return err
	}

	eval, err := evaluator.New(service)
	if err != nil {
		return err
	}
	defer eval.Shutdown()

	result, err := eval.WalkForwardOptimization(context.Background(), factory, grid,
		cfg.Strategy.Symbol, start, end, c.Int("train-days"), c.Int("test-days"),
		evaluator.Settings{
			InitialCapital: decimal.NewFromFloat(cfg.InitialCapital),
			CommissionRate: decimal.NewFromFloat(cfg.CommissionRate),
			Slippage:       decimal.NewFromFloat(cfg.Slippage),
		})
	if err != nil {
		return err
	}
	return report.WriteWalkForward(os.Stdout, result)
}

func listRuns(c *cli.Context) error {
	cfg, err := config.ReadConfigFromFile(c.String("config"))
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s %-40s %s..%s profit %.2f (%.2f%%) trades %d\n",
			r.ID, r.Strategy,
			r.RangeStart.Format(time.DateOnly), r.RangeEnd.Format(time.DateOnly),
			r.Profit, r.ReturnPct, r.TotalTrades)
	}
	return nil
}
