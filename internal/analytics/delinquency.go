package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/finance"
	"github.com/plugtech/findash/internal/kpi"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/series"
)

// Delinquency sections.
const (
	SectionBilled        = "billed"
	SectionBilledClients = "billed_clients"
	SectionOverdue       = "overdue"
)

// DelinquentItem is one overdue receivable.
type DelinquentItem struct {
	ClientID    string          `json:"client_id"`
	Client      string          `json:"client"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
	Amount      decimal.Decimal `json:"amount"`
	Share       float64         `json:"share"`
}

// DelinquencyPage compares overdue receivables with what was billed.
type DelinquencyPage struct {
	Meta
	Cutoff             time.Time        `json:"cutoff"`
	Billed             decimal.Decimal  `json:"billed"`
	BilledClients      int64            `json:"billed_clients"`
	MonthOverdue       decimal.Decimal  `json:"month_overdue"`
	MonthClients       int              `json:"month_clients"`
	AccumulatedOverdue decimal.Decimal  `json:"accumulated_overdue"`
	AccumulatedClients int              `json:"accumulated_clients"`
	OverdueShare       float64          `json:"overdue_share"`
	ClientShare        float64          `json:"client_share"`
	Monthly            series.Monthly   `json:"monthly"`
	Running            series.Monthly   `json:"running"`
	MonthlyClients     series.Monthly   `json:"monthly_clients"`
	Items              []DelinquentItem `json:"items"`
}

// Delinquency renders the delinquency page for the selected year and month.
// ref is the reference day; a zero ref means today. Receivables count as
// delinquent once they are more than the grace period past due.
func (s *Service) Delinquency(ctx context.Context, sel query.Selection, ref time.Time) (DelinquencyPage, error) {
	if ref.IsZero() {
		ref = s.Today()
	}
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, s.cfg.Location)
	if sel.Year == 0 {
		sel.Year = ref.Year()
	}
	if sel.Month == 0 {
		sel.Month = int(ref.Month())
	}
	if sel.Legal == "" {
		sel.Legal = query.LegalExclude
	}
	if err := sel.Validate(); err != nil {
		return DelinquencyPage{}, err
	}

	page := DelinquencyPage{
		Meta:   s.newMeta(sel, ref),
		Cutoff: ref.AddDate(0, 0, -s.cfg.OverdueGraceDays),
		Items:  []DelinquentItem{},
	}
	from, to := sel.MonthRange(s.cfg.Location)
	page.Billed = s.billed(ctx, &page.Meta, sel, from, to)
	page.BilledClients = s.billedClients(ctx, &page.Meta, sel, from, to)

	entries := s.overdueEntries(ctx, &page.Meta, sel, page.Cutoff)
	summarizeDelinquency(&page, entries, sel.Year, sel.Month, ref)
	return page, nil
}

func (s *Service) salesBuilder(sel query.Selection, from, to time.Time) *query.Builder {
	return s.builder(query.Aliases{Ledger: "v"}).
		Where("v.DATA_CANCELAMENTO IS NULL").
		DateRange("v.DATA_VENDA", from, to).
		Companies(sel.Companies)
}

func (s *Service) billed(ctx context.Context, meta *Meta, sel query.Selection, from, to time.Time) decimal.Decimal {
	table, ok := s.load(ctx, meta, SectionBilled, s.salesBuilder(sel, from, to),
		"SELECT COALESCE(SUM(v.VALOR_VENDA), 0) AS total FROM VENDAS v", nil, "")
	if !ok {
		return decimal.Zero
	}
	return decimalOrZero(table.Decimal(0, "total"))
}

func (s *Service) billedClients(ctx context.Context, meta *Meta, sel query.Selection, from, to time.Time) int64 {
	table, ok := s.load(ctx, meta, SectionBilledClients, s.salesBuilder(sel, from, to),
		"SELECT COUNT(DISTINCT v.IDPESSOA) AS clientes FROM VENDAS v", nil, "")
	if !ok {
		return 0
	}
	return table.Int(0, "clientes")
}

// overdueEntries is the single fetch every delinquency figure derives from.
func (s *Service) overdueEntries(ctx context.Context, meta *Meta, sel query.Selection, cutoff time.Time) []finance.LedgerEntry {
	b := s.builder(query.Aliases{Ledger: "cf"}).
		In("cf.TIPO_CONTA", receivableTypes()...).
		Where("cf.SITUACAO_CONTA = ?", string(finance.StatusOpen)).
		Before("cf.DATA_VENCIMENTO", cutoff).
		Where("(cf.VALOR_NOMINAL - COALESCE(cf.VALOR_PAGO, 0)) > 0").
		Companies(sel.Companies).
		Legal(sel.Legal)
	table, ok := s.load(ctx, meta, SectionOverdue, b,
		"SELECT p.IDPESSOA AS idpessoa, p.NOME_PESSOA AS cliente, cf.DATA_VENCIMENTO AS vencimento, "+
			"cf.VALOR_NOMINAL AS nominal, cf.VALOR_PAGO AS pago, cf.TIPO_CONTA AS tipo, cf.COD_CENTRO_CUSTO AS centro_custo "+
			"FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p ON cf.IDPESSOA = p.IDPESSOA",
		nil, "")
	if !ok {
		return nil
	}
	entries := make([]finance.LedgerEntry, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		due, ok := table.Time(i, "vencimento")
		if !ok {
			continue
		}
		entries = append(entries, finance.LedgerEntry{
			DueDate:          due,
			Nominal:          decimalOrZero(table.Decimal(i, "nominal")),
			Paid:             table.Decimal(i, "pago"),
			Type:             finance.AccountType(table.String(i, "tipo")),
			Status:           finance.StatusOpen,
			CostCenter:       table.IntPtr(i, "centro_custo"),
			CounterpartyID:   table.String(i, "idpessoa"),
			CounterpartyName: table.String(i, "cliente"),
		})
	}
	return entries
}

// summarizeDelinquency fills the KPIs, the monthly series of year and the
// detail table from the overdue entries.
func summarizeDelinquency(page *DelinquencyPage, entries []finance.LedgerEntry, year, month int, ref time.Time) {
	page.AccumulatedOverdue = kpi.OpenAmount(entries)
	page.MonthOverdue = decimal.Zero

	allClients := make(map[string]struct{})
	monthClients := make(map[string]struct{})
	perMonthClients := make([]map[string]struct{}, 12)
	var points []series.Point
	for _, e := range entries {
		allClients[e.CounterpartyID] = struct{}{}
		if e.DueDate.Year() != year {
			continue
		}
		m := int(e.DueDate.Month())
		points = append(points, series.Point{Month: m, Value: e.Pending().InexactFloat64()})
		if perMonthClients[m-1] == nil {
			perMonthClients[m-1] = make(map[string]struct{})
		}
		perMonthClients[m-1][e.CounterpartyID] = struct{}{}
		if m == month {
			page.MonthOverdue = page.MonthOverdue.Add(e.Pending())
			monthClients[e.CounterpartyID] = struct{}{}
		}
	}
	page.AccumulatedClients = len(allClients)
	page.MonthClients = len(monthClients)
	page.Monthly = series.ReindexMonthly(points)
	page.Running = page.Monthly.Cumulative()
	for i, clients := range perMonthClients {
		page.MonthlyClients[i] = float64(len(clients))
	}
	page.OverdueShare = kpi.Percentage(page.MonthOverdue.InexactFloat64(), page.Billed.InexactFloat64())
	page.ClientShare = kpi.Percentage(float64(page.MonthClients), float64(page.BilledClients))

	total := page.AccumulatedOverdue.InexactFloat64()
	items := make([]DelinquentItem, 0, len(entries))
	for _, e := range entries {
		amount := e.Pending()
		items = append(items, DelinquentItem{
			ClientID:    e.CounterpartyID,
			Client:      e.CounterpartyName,
			DueDate:     e.DueDate,
			DaysOverdue: e.DaysOverdue(ref),
			Amount:      amount,
			Share:       kpi.Percentage(amount.InexactFloat64(), total),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DaysOverdue > items[j].DaysOverdue })
	page.Items = items
}
