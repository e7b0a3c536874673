package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending(t *testing.T) {
	e := LedgerEntry{Nominal: decimal.NewFromInt(100)}
	assert.True(t, e.Pending().Equal(decimal.NewFromInt(100)))
	assert.True(t, e.IsOpen())

	e.Paid = decimal.NewNullDecimal(decimal.NewFromInt(40))
	assert.True(t, e.Pending().Equal(decimal.NewFromInt(60)))

	e.Paid = decimal.NewNullDecimal(decimal.NewFromInt(100))
	assert.True(t, e.Pending().IsZero())
	assert.False(t, e.IsOpen())

	e.Paid = decimal.NewNullDecimal(decimal.NewFromInt(120))
	assert.False(t, e.IsOpen())
}

func TestDaysOverdue(t *testing.T) {
	e := LedgerEntry{DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 10, e.DaysOverdue(time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, e.DaysOverdue(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)))
}

func TestAccountType(t *testing.T) {
	assert.True(t, TypeReceivable.IsReceivable())
	assert.True(t, TypeReceivableProvided.IsReceivable())
	assert.False(t, TypePayable.IsReceivable())
}

func TestDailyFlows(t *testing.T) {
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	flows := DailyFlows([]BankMovement{
		{Date: day, Direction: DirectionIn, Amount: decimal.RequireFromString("10.5")},
		{Date: day, Direction: DirectionOut, Amount: decimal.NewFromInt(3)},
		{Date: day, Direction: "X", Amount: decimal.NewFromInt(99)},
	})
	require.Len(t, flows, 2)
	assert.Equal(t, 10.5, flows[0].Inflow)
	assert.Equal(t, 3.0, flows[1].Outflow)
}
