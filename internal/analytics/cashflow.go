package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/fetch"
	"github.com/plugtech/findash/internal/finance"
	"github.com/plugtech/findash/internal/kpi"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/series"
)

// Cash flow sections.
const (
	SectionBalance     = "balance"
	SectionReceivable  = "receivable_total"
	SectionPayable     = "payable_total"
	SectionFlows       = "daily_flows"
	SectionReceivables = "receivables"
	SectionPayables    = "payables"
)

const defaultCashFlowDays = 30

// DueItem is one open receivable or payable in a detail table.
type DueItem struct {
	DueDate      time.Time       `json:"due_date"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
}

// CashFlowPage is the cash position for a due-date window.
type CashFlowPage struct {
	Meta
	Balance     decimal.Decimal  `json:"balance"`
	Receivable  decimal.Decimal  `json:"receivable"`
	Payable     decimal.Decimal  `json:"payable"`
	Operational decimal.Decimal  `json:"operational"`
	Flows       []series.DayFlow `json:"flows"`
	Receivables []DueItem        `json:"receivables"`
	Payables    []DueItem        `json:"payables"`
}

// CashFlow renders the cash flow page. A missing date range defaults to the
// last thirty days.
func (s *Service) CashFlow(ctx context.Context, sel query.Selection) (CashFlowPage, error) {
	today := s.Today()
	if sel.From.IsZero() && sel.To.IsZero() {
		sel.From, sel.To = today.AddDate(0, 0, -defaultCashFlowDays), today
	}
	if sel.Legal == "" {
		sel.Legal = query.LegalExclude
	}
	if err := sel.Validate(); err != nil {
		return CashFlowPage{}, err
	}

	page := CashFlowPage{Meta: s.newMeta(sel, today)}
	page.Balance = s.accountBalance(ctx, &page.Meta, sel)
	page.Receivable = s.openTotal(ctx, &page.Meta, SectionReceivable, sel, receivableTypes())
	page.Payable = s.openTotal(ctx, &page.Meta, SectionPayable, sel, []any{string(finance.TypePayable)})
	page.Operational = kpi.OperationalBalance(page.Balance, page.Receivable, page.Payable)
	page.Flows = series.ReindexDaily(sel.From, sel.To, finance.DailyFlows(s.bankMovements(ctx, &page.Meta, sel)))
	page.Receivables = s.dueItems(ctx, &page.Meta, SectionReceivables, sel, receivableTypes(), "cliente",
		"(cf.VALOR_NOMINAL - COALESCE(cf.VALOR_PAGO, 0))")
	page.Payables = s.dueItems(ctx, &page.Meta, SectionPayables, sel, []any{string(finance.TypePayable)}, "fornecedor",
		"cf.VALOR_NOMINAL")
	return page, nil
}

func (s *Service) accountBalance(ctx context.Context, meta *Meta, sel query.Selection) decimal.Decimal {
	b := s.builder(query.Aliases{Account: "cc"}).
		Present("cc").
		Companies(sel.Companies).
		ExcludeAccounts(s.cfg.ExcludedAccountIDs)
	table, ok := s.load(ctx, meta, SectionBalance, b,
		"SELECT cc.SALDO_FECHAMENTO AS fechamento, cc.SALDO_DINHEIRO AS dinheiro, cc.SALDO_CHEQUE AS cheque FROM CONTAS_CORRENTE cc", nil, "")
	if !ok {
		return decimal.Zero
	}
	accounts := make([]kpi.AccountBalance, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		accounts = append(accounts, kpi.AccountBalance{
			Closing: table.Decimal(i, "fechamento"),
			Cash:    table.Decimal(i, "dinheiro"),
			Check:   table.Decimal(i, "cheque"),
		})
	}
	return kpi.Balance(accounts)
}

func (s *Service) openTotal(ctx context.Context, meta *Meta, section string, sel query.Selection, types []any) decimal.Decimal {
	b := s.builder(query.Aliases{Ledger: "cf"}).
		In("cf.TIPO_CONTA", types...).
		Where("cf.SITUACAO_CONTA = ?", string(finance.StatusOpen)).
		DateRange("cf.DATA_VENCIMENTO", sel.From, sel.To).
		Where("(cf.VALOR_NOMINAL - COALESCE(cf.VALOR_PAGO, 0)) > 0").
		Companies(sel.Companies).
		Legal(sel.Legal)
	table, ok := s.load(ctx, meta, section, b,
		"SELECT COALESCE(SUM(cf.VALOR_NOMINAL - COALESCE(cf.VALOR_PAGO, 0)), 0) AS total FROM CONTAS_FINANCEIRA cf", nil, "")
	if !ok {
		return decimal.Zero
	}
	return decimalOrZero(table.Decimal(0, "total"))
}

func (s *Service) bankMovements(ctx context.Context, meta *Meta, sel query.Selection) []finance.BankMovement {
	b := s.builder(query.Aliases{Ledger: "lb"}).
		DateRange("lb.DATA_OPERACAO", sel.From, sel.To).
		Companies(sel.Companies).
		ExcludeAccounts(s.cfg.ExcludedAccountIDs)
	table, ok := s.load(ctx, meta, SectionFlows, b,
		"SELECT lb.DATA_OPERACAO AS data, lb.TIPO_LANCAMENTO AS tipo, SUM(lb.VALOR_LANCAMENTO) AS valor FROM LANCAMENTOS_BANCARIO lb",
		nil, "GROUP BY lb.DATA_OPERACAO, lb.TIPO_LANCAMENTO ORDER BY lb.DATA_OPERACAO")
	if !ok {
		return nil
	}
	out := make([]finance.BankMovement, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		day, ok := table.Time(i, "data")
		if !ok {
			continue
		}
		out = append(out, finance.BankMovement{
			Date:      day,
			Direction: finance.Direction(table.String(i, "tipo")),
			Amount:    decimalOrZero(table.Decimal(i, "valor")),
		})
	}
	return out
}

// dueItems lists entries with something pending in the window. amountExpr
// chooses which value the table shows.
func (s *Service) dueItems(ctx context.Context, meta *Meta, section string, sel query.Selection, types []any, party, amountExpr string) []DueItem {
	b := s.builder(query.Aliases{Ledger: "cf"}).
		In("cf.TIPO_CONTA", types...).
		DateRange("cf.DATA_VENCIMENTO", sel.From, sel.To).
		Where("(cf.VALOR_NOMINAL - COALESCE(cf.VALOR_PAGO, 0)) > 0").
		Companies(sel.Companies).
		Legal(sel.Legal)
	head := "SELECT cf.DATA_VENCIMENTO AS vencimento, p.NOME_PESSOA AS " + party + ", " + amountExpr +
		" AS valor FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p ON cf.IDPESSOA = p.IDPESSOA"
	table, ok := s.load(ctx, meta, section, b, head, nil, "ORDER BY cf.DATA_VENCIMENTO")
	if !ok {
		return []DueItem{}
	}
	return dueItemsFrom(table, party)
}

func dueItemsFrom(table fetch.Table, party string) []DueItem {
	items := make([]DueItem, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		due, _ := table.Time(i, "vencimento")
		items = append(items, DueItem{
			DueDate:      due,
			Counterparty: table.String(i, party),
			Amount:       decimalOrZero(table.Decimal(i, "valor")),
		})
	}
	return items
}
