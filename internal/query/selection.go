package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidSelection wraps selection validation failures.
var ErrInvalidSelection = errors.New("query: invalid selection")

// LegalStatus selects how receivables transferred to collections are treated.
type LegalStatus string

const (
	LegalAll     LegalStatus = "all"
	LegalOnly    LegalStatus = "only"
	LegalExclude LegalStatus = "exclude"
)

// DefaultLegalCode is the cost center that marks a receivable as sent to collections.
const DefaultLegalCode int64 = 4240340

// ParseLegalStatus maps a request value onto a LegalStatus.
func ParseLegalStatus(raw string) (LegalStatus, error) {
	switch LegalStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case LegalAll:
		return LegalAll, nil
	case LegalOnly:
		return LegalOnly, nil
	case LegalExclude:
		return LegalExclude, nil
	}
	return "", fmt.Errorf("%w: legal status %q", ErrInvalidSelection, raw)
}

// Matches evaluates the status against a cost center the same way the SQL
// predicate does. A null cost center is never flagged.
func (s LegalStatus) Matches(costCenter *int64, code int64) bool {
	flagged := costCenter != nil && *costCenter == code
	switch s {
	case LegalOnly:
		return flagged
	case LegalExclude:
		return !flagged
	default:
		return true
	}
}

// Contract status codes.
const (
	ContractOpen      = "AB"
	ContractBlocked   = "BL"
	ContractCancelled = "CA"
)

// ContractStatusLabels names contract status codes for display.
var ContractStatusLabels = map[string]string{
	ContractOpen:      "Aberto",
	ContractBlocked:   "Bloqueado",
	ContractCancelled: "Cancelado",
}

// Selection is the set of filters chosen for one report render. Empty company
// and category lists mean no restriction.
type Selection struct {
	From             time.Time   `json:"from"`
	To               time.Time   `json:"to" validate:"gtefield=From"`
	Companies        []string    `json:"companies,omitempty"`
	Legal            LegalStatus `json:"legal,omitempty" validate:"omitempty,oneof=all only exclude"`
	ContractStatuses []string    `json:"contract_statuses,omitempty" validate:"dive,oneof=AB BL CA"`
	Categories       []Category  `json:"categories,omitempty" validate:"dive,oneof=color mono desktop monitor notebook other"`
	Year             int         `json:"year,omitempty" validate:"omitempty,min=1900,max=9999"`
	Month            int         `json:"month,omitempty" validate:"min=0,max=12"`
}

var validate = validator.New()

// Validate checks field types and the date range order.
func (s Selection) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return nil
}

// AllCompanies reports whether the selection places no company restriction.
func (s Selection) AllCompanies() bool {
	return len(s.Companies) == 0
}

// MonthRange returns the first and last calendar day of Year/Month. A zero
// month spans the whole year.
func (s Selection) MonthRange(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	if s.Month == 0 {
		return time.Date(s.Year, time.January, 1, 0, 0, 0, 0, loc), time.Date(s.Year, time.December, 31, 0, 0, 0, 0, loc)
	}
	first := time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, loc)
	return first, first.AddDate(0, 1, -1)
}
