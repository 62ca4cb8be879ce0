package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()
	now := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := New("", decimal.NewFromInt(1), now)
	assert.Error(t, err, "empty symbol should be rejected")

	_, err = New("AAPL", decimal.Zero, now)
	assert.ErrorIs(t, err, ErrZeroQuantity)

	_, err = NewTriggered("AAPL", Limit, decimal.NewFromInt(1), decimal.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidTriggerPrice, "limit orders need a positive trigger")

	_, err = NewTriggered("AAPL", Stop, decimal.NewFromInt(1), decimal.NewFromInt(-5), now)
	assert.ErrorIs(t, err, ErrInvalidTriggerPrice, "negative trigger is a programming error")

	o, err := NewTriggered("AAPL", StopLimit, decimal.NewFromInt(-3), decimal.NewFromInt(100), now)
	require.NoError(t, err)
	assert.True(t, o.IsSell())
	assert.False(t, o.IsBuy())
	assert.True(t, o.AbsQuantity().Equal(decimal.NewFromInt(3)))
}

func TestIDsAreMonotonic(t *testing.T) {
	t.Parallel()
	now := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	a, err := New("AAPL", decimal.NewFromInt(1), now)
	require.NoError(t, err)
	b, err := New("AAPL", decimal.NewFromInt(1), now)
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID, "ids must increase per issuance")
}

func TestExecuteOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	o, err := New("AAPL", decimal.NewFromInt(10), now)
	require.NoError(t, err)
	assert.False(t, o.IsExecuted())

	fill := now.Add(24 * time.Hour)
	require.NoError(t, o.Execute(fill, decimal.NewFromInt(101)), "first execute must not error")
	assert.True(t, o.IsExecuted())
	assert.True(t, o.ExecutionTime().Equal(fill))
	assert.True(t, o.ExecutionPrice().Equal(decimal.NewFromInt(101)))

	err = o.Execute(fill.Add(time.Hour), decimal.NewFromInt(200))
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	assert.True(t, o.ExecutionPrice().Equal(decimal.NewFromInt(101)), "execution fields are frozen")
}

func TestRiskLevels(t *testing.T) {
	t.Parallel()
	now := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	o, err := New("AAPL", decimal.NewFromInt(10), now)
	require.NoError(t, err)
	assert.False(t, o.HasStopLoss())
	assert.False(t, o.HasTakeProfit())

	o.StopLossPrice = decimal.NewFromInt(95)
	o.TakeProfitPrice = decimal.NewFromInt(110)
	assert.True(t, o.HasStopLoss())
	assert.True(t, o.HasTakeProfit())
}

func TestTypeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "MARKET", Market.String())
	assert.Equal(t, "LIMIT", Limit.String())
	assert.Equal(t, "STOP", Stop.String())
	assert.Equal(t, "STOP_LIMIT", StopLimit.String())
}
