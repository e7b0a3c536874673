// Package finance models the ledger rows the reports read: receivables,
// payables and bank movements.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/series"
)

// AccountType classifies a ledger entry.
type AccountType string

const (
	TypeReceivable         AccountType = "RE"
	TypeReceivableProvided AccountType = "RP"
	TypePayable            AccountType = "PA"
)

// ReceivableTypes are the entry types counted as money to receive.
var ReceivableTypes = []AccountType{TypeReceivable, TypeReceivableProvided}

// IsReceivable reports whether t is a receivable type.
func (t AccountType) IsReceivable() bool {
	return t == TypeReceivable || t == TypeReceivableProvided
}

// Status is the lifecycle state of a ledger entry.
type Status string

const (
	StatusOpen      Status = "AB"
	StatusBlocked   Status = "BL"
	StatusCancelled Status = "CA"
)

// LedgerEntry is one receivable or payable.
type LedgerEntry struct {
	DueDate          time.Time
	Nominal          decimal.Decimal
	Paid             decimal.NullDecimal
	Type             AccountType
	Status           Status
	CostCenter       *int64
	CounterpartyID   string
	CounterpartyName string
}

// Pending is the nominal value minus what was paid; a null payment counts as zero.
func (e LedgerEntry) Pending() decimal.Decimal {
	if !e.Paid.Valid {
		return e.Nominal
	}
	return e.Nominal.Sub(e.Paid.Decimal)
}

// IsOpen reports whether anything is still pending.
func (e LedgerEntry) IsOpen() bool {
	return e.Pending().IsPositive()
}

// DaysOverdue counts whole days between the due date and ref. Entries not yet
// due return zero.
func (e LedgerEntry) DaysOverdue(ref time.Time) int {
	due := time.Date(e.DueDate.Year(), e.DueDate.Month(), e.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	days := int(day.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Direction of a bank movement.
type Direction string

const (
	DirectionIn  Direction = "E"
	DirectionOut Direction = "S"
)

// BankMovement is an amount booked on a current account.
type BankMovement struct {
	Date      time.Time
	Direction Direction
	Amount    decimal.Decimal
}

// DailyFlows folds movements into per-day inflow and outflow. Unknown
// directions are ignored.
func DailyFlows(movements []BankMovement) []series.DayFlow {
	flows := make([]series.DayFlow, 0, len(movements))
	for _, m := range movements {
		amount := m.Amount.InexactFloat64()
		switch m.Direction {
		case DirectionIn:
			flows = append(flows, series.DayFlow{Date: m.Date, Inflow: amount})
		case DirectionOut:
			flows = append(flows, series.DayFlow{Date: m.Date, Outflow: amount})
		}
	}
	return flows
}
