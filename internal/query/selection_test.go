package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionValidate(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ok := Selection{
		From:             from,
		To:               from.AddDate(0, 1, 0),
		Legal:            LegalExclude,
		ContractStatuses: []string{ContractOpen},
		Categories:       []Category{CategoryMono},
		Year:             2024,
		Month:            2,
	}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.To = from.AddDate(0, 0, -1)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSelection)

	bad = ok
	bad.ContractStatuses = []string{"XX"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSelection)

	bad = ok
	bad.Month = 13
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSelection)

	bad = ok
	bad.Legal = "maybe"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSelection)
}

func TestParseLegalStatus(t *testing.T) {
	s, err := ParseLegalStatus(" ONLY ")
	require.NoError(t, err)
	assert.Equal(t, LegalOnly, s)

	_, err = ParseLegalStatus("sometimes")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestMonthRange(t *testing.T) {
	first, last := Selection{Year: 2024, Month: 2}.MonthRange(time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), last)

	first, last = Selection{Year: 2023}.MonthRange(nil)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), last)
}

func TestAllCompanies(t *testing.T) {
	assert.True(t, Selection{}.AllCompanies())
	assert.False(t, Selection{Companies: []string{"A"}}.AllCompanies())
}
