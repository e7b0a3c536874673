// Package export turns report pages into spreadsheets, CSV files and PDFs.
package export

import (
	"errors"
	"strings"
)

// ErrUnknownSheet is returned when a requested sheet is not part of a page.
var ErrUnknownSheet = errors.New("export: unknown sheet")

// Kind selects how the cells of a column are typed and formatted.
type Kind int

const (
	KindText Kind = iota
	KindMoney
	KindNumber
	KindInteger
	KindPercent
	KindDate
)

// Column is one header of a sheet.
type Column struct {
	Header string
	Kind   Kind
}

// Sheet is one named table. Cells hold string, time.Time, decimal.Decimal,
// float64, int or int64 values.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Find returns the sheet whose name matches name, ignoring case.
func Find(sheets []Sheet, name string) (Sheet, error) {
	for _, sh := range sheets {
		if strings.EqualFold(sh.Name, name) || strings.EqualFold(SanitizeSheetName(sh.Name), name) {
			return sh, nil
		}
	}
	return Sheet{}, ErrUnknownSheet
}

// Names lists the sheet names in order.
func Names(sheets []Sheet) []string {
	out := make([]string, 0, len(sheets))
	for _, sh := range sheets {
		out = append(out, sh.Name)
	}
	return out
}

const maxSheetName = 31

// SanitizeSheetName applies the spreadsheet naming rules: at most 31
// characters, none of []:*?/\ and no surrounding apostrophes.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = "Planilha"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
