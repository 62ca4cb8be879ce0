// Package report renders backtest outcomes for the terminal. Dashboards
// and charts are deliberately out of scope; everything here writes plain
// tables and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/evaluator"
	"github.com/tradepulse/gobacktester/portfolio"
)

// WriteResults renders the aggregate results of one run
func WriteResults(w io.Writer, strategyName string, r *engine.Results) error {
	fmt.Fprintf(w, "strategy: %s\n", strategyName)

	table := tablewriter.NewWriter(w)
	table.Header("Initial", "Final", "Profit", "Return %", "Trades", "Win %", "Avg Win", "Avg Loss", "PF", "Max DD %")
	table.Append(
		r.InitialCapital.Round(2).String(),
		r.FinalCapital.Round(2).String(),
		r.Profit.Round(2).String(),
		r.ReturnPct.Round(2).String(),
		fmt.Sprintf("%d", r.TotalTrades),
		r.WinRate.Round(2).String(),
		r.AverageProfit.Round(2).String(),
		r.AverageLoss.Round(2).String(),
		r.ProfitFactor.Round(2).String(),
		r.MaxDrawdown.Round(2).String(),
	)
	if err := table.Render(); err != nil {
		return err
	}

	if r.Metrics != nil {
		metrics := tablewriter.NewWriter(w)
		metrics.Header("Sharpe", "Sortino", "Calmar", "Volatility", "Expectancy")
		metrics.Append(
			fmt.Sprintf("%.4f", r.Metrics.SharpeRatio),
			fmt.Sprintf("%.4f", r.Metrics.SortinoRatio),
			fmt.Sprintf("%.4f", r.Metrics.CalmarRatio),
			fmt.Sprintf("%.4f", r.Metrics.Volatility),
			fmt.Sprintf("%.2f", r.Metrics.Expectancy),
		)
		return metrics.Render()
	}
	return nil
}

// WriteTrades renders the closed trade ledger
func WriteTrades(w io.Writer, trades []*portfolio.Trade) error {
	if len(trades) == 0 {
		fmt.Fprintln(w, "no trades")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Side", "Entry", "Entry Px", "Exit", "Exit Px", "Qty", "Profit", "Profit %", "Exit Reason")
	for _, t := range trades {
		side := "SHORT"
		if t.IsLong {
			side = "LONG"
		}
		reason := "signal"
		if t.StopLossHit {
			reason = "stop loss"
		} else if t.TakeProfitHit {
			reason = "take profit"
		}
		table.Append(
			t.Symbol,
			side,
			t.EntryTime.Format(time.DateTime),
			t.EntryPrice.Round(4).String(),
			t.ExitTime.Format(time.DateTime),
			t.ExitPrice.Round(4).String(),
			t.EntryQuantity.Abs().String(),
			t.Profit.Round(2).String(),
			t.ProfitPercent.Round(2).String(),
			reason,
		)
	}
	return table.Render()
}

// WriteSweep renders parameter sweep outcomes, best first
func WriteSweep(w io.Writer, results []*evaluator.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Parameters", "Return %", "Sharpe", "Max DD %", "Win %", "Trades")
	for i, r := range results {
		params, err := json.Marshal(r.Parameters)
		if err != nil {
			return err
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(params),
			fmt.Sprintf("%.2f", r.Metrics.TotalReturn*100),
			fmt.Sprintf("%.4f", r.Metrics.SharpeRatio),
			fmt.Sprintf("%.2f", r.Metrics.MaxDrawdown*100),
			fmt.Sprintf("%.2f", r.Metrics.WinRate*100),
			fmt.Sprintf("%d", r.Metrics.NumberOfTrades),
		)
	}
	return table.Render()
}

// WriteWalkForward renders the window outcomes and aggregate of a
// walk-forward optimization
func WriteWalkForward(w io.Writer, result *evaluator.WalkForwardResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Window", "Train", "Test", "Best Parameters", "Test Return %", "Test Trades")
	for i, wr := range result.Windows {
		params, err := json.Marshal(wr.BestParameters)
		if err != nil {
			return err
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s..%s", wr.Window.TrainStart.Format(time.DateOnly), wr.Window.TrainEnd.Format(time.DateOnly)),
			fmt.Sprintf("%s..%s", wr.Window.TestStart.Format(time.DateOnly), wr.Window.TestEnd.Format(time.DateOnly)),
			string(params),
			fmt.Sprintf("%.2f", wr.TestMetrics.TotalReturn*100),
			fmt.Sprintf("%d", wr.TestMetrics.NumberOfTrades),
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	stable, err := json.Marshal(result.BestParameters)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "most stable parameters: %s\n", stable)
	fmt.Fprintf(w, "aggregate: return %.2f%% sharpe %.4f drawdown %.2f%% over %d trades\n",
		result.OverallMetrics.TotalReturn*100,
		result.OverallMetrics.SharpeRatio,
		result.OverallMetrics.MaxDrawdown*100,
		result.OverallMetrics.NumberOfTrades)
	return nil
}

// Serialise renders the results as indented JSON for interchange
func Serialise(r *engine.Results) (string, error) {
	out, err := json.MarshalIndent(r.MarshalMap(), "", " ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
