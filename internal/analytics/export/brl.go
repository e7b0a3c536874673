package export

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders v as Brazilian currency, for example R$ 1.234,56.
func FormatBRL(v decimal.Decimal) string {
	return brl.Sprintf("R$ %.2f", v.Round(2).InexactFloat64())
}

// FormatPercent renders a 0-100 percentage with one decimal place.
func FormatPercent(v float64) string {
	return brl.Sprintf("%.1f%%", v)
}
