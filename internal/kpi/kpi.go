// Package kpi holds the arithmetic behind the dashboard indicators. Every
// function is total: divisions by zero resolve to a defined value.
package kpi

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/finance"
)

// Variance is the percent change of current over previous. Without a usable
// baseline (previous null or zero) it is 0 when current is also null or zero
// and -100 otherwise.
func Variance(current, previous sql.NullFloat64) float64 {
	if previous.Valid && !almostZero(previous.Float64) {
		c := 0.0
		if current.Valid {
			c = current.Float64
		}
		return (c - previous.Float64) / previous.Float64 * 100
	}
	if !current.Valid || almostZero(current.Float64) {
		return 0
	}
	return -100
}

// Growth is Variance for non-null operands.
func Growth(current, previous float64) float64 {
	return Variance(sql.NullFloat64{Float64: current, Valid: true}, sql.NullFloat64{Float64: previous, Valid: true})
}

// Percentage is part over whole times 100, zero when whole is zero.
func Percentage(part, whole float64) float64 {
	if almostZero(whole) {
		return 0
	}
	return part / whole * 100
}

// AccountBalance is the three balance columns of a current account.
type AccountBalance struct {
	Closing decimal.NullDecimal
	Cash    decimal.NullDecimal
	Check   decimal.NullDecimal
}

// Total adds the three columns, nulls as zero.
func (b AccountBalance) Total() decimal.Decimal {
	return orZero(b.Closing).Add(orZero(b.Cash)).Add(orZero(b.Check))
}

// Balance sums the totals of every account.
func Balance(accounts []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Total())
	}
	return total
}

// OperationalBalance is the balance plus receivables minus payables.
func OperationalBalance(balance, receivable, payable decimal.Decimal) decimal.Decimal {
	return balance.Add(receivable).Sub(payable)
}

// OpenAmount sums the pending value of entries that still have something to pay.
func OpenAmount(entries []finance.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.IsOpen() {
			total = total.Add(e.Pending())
		}
	}
	return total
}

// RecordCount counts every entry regardless of pending value.
func RecordCount(entries []finance.LedgerEntry) int {
	return len(entries)
}

// Abbreviate renders a value with a k, M or B suffix for chart labels.
func Abbreviate(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.0fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func almostZero(v float64) bool {
	return math.Abs(v) < 1e-9
}
