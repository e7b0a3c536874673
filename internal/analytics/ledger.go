package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/finance"
	"github.com/plugtech/findash/internal/kpi"
	"github.com/plugtech/findash/internal/query"
)

// SectionLedger is the single section of the ledger reports.
const SectionLedger = "ledger"

// LedgerRow is one open entry of a ledger report.
type LedgerRow struct {
	Counterparty string          `json:"counterparty"`
	DueDate      time.Time       `json:"due_date"`
	Nominal      decimal.Decimal `json:"nominal"`
	Pending      decimal.Decimal `json:"pending"`
	Legal        bool            `json:"legal"`
}

// LedgerPage lists every open receivable or payable due in the window.
type LedgerPage struct {
	Meta
	Type        string          `json:"type"`
	Rows        []LedgerRow     `json:"rows"`
	Records     int             `json:"records"`
	OpenAmount  decimal.Decimal `json:"open_amount"`
	LegalAmount decimal.Decimal `json:"legal_amount"`
}

// Receivables lists open RE and RP entries.
func (s *Service) Receivables(ctx context.Context, sel query.Selection) (LedgerPage, error) {
	return s.ledgerReport(ctx, sel, "receivables", receivableTypes(), "cliente")
}

// Payables lists open PA entries.
func (s *Service) Payables(ctx context.Context, sel query.Selection) (LedgerPage, error) {
	return s.ledgerReport(ctx, sel, "payables", []any{string(finance.TypePayable)}, "fornecedor")
}

// ledgerReport keeps entries with nothing left to pay: Records counts every
// row while OpenAmount only adds pending values. A missing window defaults to
// the current month.
func (s *Service) ledgerReport(ctx context.Context, sel query.Selection, kind string, types []any, party string) (LedgerPage, error) {
	today := s.Today()
	if sel.From.IsZero() && sel.To.IsZero() {
		sel.From = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		sel.To = sel.From.AddDate(0, 1, -1)
	}
	if err := sel.Validate(); err != nil {
		return LedgerPage{}, err
	}

	page := LedgerPage{Meta: s.newMeta(sel, today), Type: kind, Rows: []LedgerRow{}}
	b := s.builder(query.Aliases{Ledger: "cf"}).
		In("cf.TIPO_CONTA", types...).
		Where("cf.SITUACAO_CONTA = ?", string(finance.StatusOpen)).
		DateRange("cf.DATA_VENCIMENTO", sel.From, sel.To).
		Companies(sel.Companies)
	head := "SELECT p.NOME_PESSOA AS " + party + ", cf.DATA_VENCIMENTO AS vencimento, cf.VALOR_NOMINAL AS nominal, " +
		"cf.VALOR_PAGO AS pago, cf.TIPO_CONTA AS tipo, cf.COD_CENTRO_CUSTO AS centro_custo " +
		"FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p ON cf.IDPESSOA = p.IDPESSOA"
	table, ok := s.load(ctx, &page.Meta, SectionLedger, b, head, nil, "ORDER BY cf.DATA_VENCIMENTO")
	if !ok {
		page.OpenAmount, page.LegalAmount = decimal.Zero, decimal.Zero
		return page, nil
	}

	entries := make([]finance.LedgerEntry, 0, table.Len())
	var legal []finance.LedgerEntry
	for i := 0; i < table.Len(); i++ {
		due, _ := table.Time(i, "vencimento")
		e := finance.LedgerEntry{
			DueDate:          due,
			Nominal:          decimalOrZero(table.Decimal(i, "nominal")),
			Paid:             table.Decimal(i, "pago"),
			Type:             finance.AccountType(table.String(i, "tipo")),
			Status:           finance.StatusOpen,
			CostCenter:       table.IntPtr(i, "centro_custo"),
			CounterpartyName: table.String(i, party),
		}
		flagged := query.LegalOnly.Matches(e.CostCenter, s.cfg.LegalCostCenter)
		if flagged {
			legal = append(legal, e)
		}
		entries = append(entries, e)
		page.Rows = append(page.Rows, LedgerRow{
			Counterparty: e.CounterpartyName,
			DueDate:      e.DueDate,
			Nominal:      e.Nominal,
			Pending:      e.Pending(),
			Legal:        flagged,
		})
	}
	page.Records = kpi.RecordCount(entries)
	page.OpenAmount = kpi.OpenAmount(entries)
	page.LegalAmount = kpi.OpenAmount(legal)
	return page, nil
}
