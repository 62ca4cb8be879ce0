package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/portfolio"
	"github.com/tradepulse/gobacktester/risk"
)

var anchor = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func sampleResults(withMetrics bool) *engine.Results {
	r := &engine.Results{
		InitialCapital: decimal.NewFromInt(10000),
		FinalCapital:   decimal.NewFromInt(10100),
		Profit:         decimal.NewFromInt(100),
		ReturnPct:      decimal.NewFromInt(1),
		TotalTrades:    1,
		WinningTrades:  1,
		WinRate:        decimal.NewFromInt(100),
		Trades: []*portfolio.Trade{{
			Symbol:        "AAPL",
			EntryTime:     anchor,
			EntryPrice:    decimal.NewFromInt(100),
			EntryQuantity: decimal.NewFromInt(10),
			ExitTime:      anchor.AddDate(0, 0, 5),
			ExitPrice:     decimal.NewFromInt(110),
			ExitQuantity:  decimal.NewFromInt(-10),
			Profit:        decimal.NewFromInt(100),
			ProfitPercent: decimal.NewFromInt(10),
			IsLong:        true,
			StopLossHit:   true,
		}},
	}
	if withMetrics {
		r.Metrics = &risk.Metrics{SharpeRatio: 1.5, SortinoRatio: 2.1, NumberOfTrades: 1}
	}
	return r
}

func TestWriteResults(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, "rsi", sampleResults(false)), "WriteResults must not error")
	out := buf.String()
	assert.Contains(t, out, "rsi")
	assert.Contains(t, out, "10100")
	assert.NotContains(t, out, "SHARPE", "metric table only renders when attached")
}

func TestWriteResultsWithMetrics(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, "rsi", sampleResults(true)))
	assert.Contains(t, buf.String(), "SHARPE")
	assert.Contains(t, buf.String(), "1.5000")
}

func TestWriteTrades(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteTrades(&buf, sampleResults(false).Trades))
	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "LONG")
	assert.Contains(t, out, "stop loss")

	buf.Reset()
	require.NoError(t, WriteTrades(&buf, nil))
	assert.True(t, strings.Contains(buf.String(), "no trades"))
}

func TestSerialise(t *testing.T) {
	t.Parallel()
	out, err := Serialise(sampleResults(true))
	require.NoError(t, err)
	assert.Contains(t, out, `"finalCapital"`)
	assert.Contains(t, out, `"sharpeRatio"`)
}
