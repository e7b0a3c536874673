package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/plugtech/findash/internal/fetch"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/registry"
)

type route struct {
	match string
	when  func(query.Statement) bool
	table fetch.Table
	err   error
}

// stubFetcher answers statements by substring so tests can stage one table
// per section.
type stubFetcher struct {
	mu     sync.Mutex
	routes []route
	calls  []query.Statement
}

func (f *stubFetcher) on(match string, table fetch.Table) *stubFetcher {
	f.routes = append(f.routes, route{match: match, table: table})
	return f
}

func (f *stubFetcher) onWhen(match string, when func(query.Statement) bool, table fetch.Table) *stubFetcher {
	f.routes = append(f.routes, route{match: match, when: when, table: table})
	return f
}

func (f *stubFetcher) fail(match string, err error) *stubFetcher {
	f.routes = append(f.routes, route{match: match, err: err})
	return f
}

func (f *stubFetcher) Fetch(_ context.Context, stmt query.Statement) (fetch.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stmt)
	if err := stmt.Check(); err != nil {
		return fetch.Table{}, err
	}
	for _, r := range f.routes {
		if !strings.Contains(stmt.Text, r.match) {
			continue
		}
		if r.when != nil && !r.when(stmt) {
			continue
		}
		if r.err != nil {
			return fetch.Table{}, &fetch.QueryError{Query: stmt.Text, Args: stmt.Args, Err: r.err}
		}
		return r.table, nil
	}
	return fetch.Table{}, nil
}

func (f *stubFetcher) find(t *testing.T, match string) query.Statement {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stmt := range f.calls {
		if strings.Contains(stmt.Text, match) {
			return stmt
		}
	}
	t.Fatalf("no statement containing %q", match)
	return query.Statement{}
}

func lastArg(v any) func(query.Statement) bool {
	return func(stmt query.Statement) bool {
		return len(stmt.Args) > 0 && stmt.Args[len(stmt.Args)-1] == v
	}
}

func hasArg(v any) func(query.Statement) bool {
	return func(stmt query.Statement) bool {
		for _, a := range stmt.Args {
			if a == v {
				return true
			}
		}
		return false
	}
}

func newTestService(t *testing.T, f fetch.Fetcher, today time.Time) *Service {
	t.Helper()
	svc := NewService(registry.Default(), f, DefaultConfig(), nil)
	return svc.WithNow(func() time.Time { return today })
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func requireDecimal(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.NewFromFloat(want)), "want %v got %s", want, got)
}

func TestCashFlowTotals(t *testing.T) {
	f := (&stubFetcher{}).
		on("SALDO_FECHAMENTO", fetch.NewTable(
			[]string{"FECHAMENTO", "DINHEIRO", "CHEQUE"},
			[][]any{{100.0, nil, 50.0}, {10.0, 5.0, nil}})).
		onWhen("COALESCE(SUM(cf.VALOR_NOMINAL", hasArg("RE"), fetch.NewTable([]string{"TOTAL"}, [][]any{{300.0}})).
		onWhen("COALESCE(SUM(cf.VALOR_NOMINAL", hasArg("PA"), fetch.NewTable([]string{"TOTAL"}, [][]any{{120.0}})).
		on("LANCAMENTOS_BANCARIO", fetch.NewTable(
			[]string{"DATA", "TIPO", "VALOR"},
			[][]any{{date(2025, 3, 2), "E", 80.0}, {date(2025, 3, 2), "S", 30.0}, {date(2025, 3, 4), "S", 10.0}}))
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.CashFlow(context.Background(), query.Selection{From: date(2025, 3, 1), To: date(2025, 3, 5)})
	require.NoError(t, err)
	requireDecimal(t, 165, page.Balance)
	requireDecimal(t, 300, page.Receivable)
	requireDecimal(t, 120, page.Payable)
	requireDecimal(t, 345, page.Operational)

	require.Len(t, page.Flows, 5)
	require.Equal(t, 80.0, page.Flows[1].Inflow)
	require.Equal(t, 30.0, page.Flows[1].Outflow)
	require.Equal(t, 10.0, page.Flows[3].Outflow)
	require.Zero(t, page.Flows[0].Net())

	require.Equal(t, query.LegalExclude, page.Selection.Legal)
	stmt := f.find(t, "SALDO_FECHAMENTO")
	require.Contains(t, stmt.Text, "cc.IDCONTA_CORRENTE NOT IN (?, ?)")
	require.Equal(t, []any{int64(32), int64(33)}, stmt.Args)
}

func TestCashFlowDefaultsToLastThirtyDays(t *testing.T) {
	f := &stubFetcher{}
	svc := newTestService(t, f, date(2025, 3, 31))

	page, err := svc.CashFlow(context.Background(), query.Selection{})
	require.NoError(t, err)
	require.Equal(t, date(2025, 3, 1), page.Selection.From)
	require.Equal(t, date(2025, 3, 31), page.Selection.To)
	require.Len(t, page.Flows, 31)
}

func TestCashFlowSectionsFailIndependently(t *testing.T) {
	f := (&stubFetcher{}).
		on("SALDO_FECHAMENTO", fetch.NewTable([]string{"FECHAMENTO", "DINHEIRO", "CHEQUE"}, [][]any{{10.0, 0.0, 0.0}})).
		fail("LANCAMENTOS_BANCARIO", errors.New("table locked"))
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.CashFlow(context.Background(), query.Selection{From: date(2025, 3, 1), To: date(2025, 3, 3)})
	require.NoError(t, err)

	flows := page.Sections[SectionFlows]
	require.Equal(t, SectionFailed, flows.State)
	require.Contains(t, flows.Message, "table locked")
	require.Contains(t, flows.Query, "LANCAMENTOS_BANCARIO")
	require.Len(t, page.Flows, 3)

	require.Equal(t, SectionOK, page.Sections[SectionBalance].State)
	require.Equal(t, SectionEmpty, page.Sections[SectionReceivables].State)
	require.Equal(t, msgNoData, page.Sections[SectionReceivables].Message)
	require.Empty(t, page.Receivables)
	require.Equal(t, []string{SectionFlows}, page.Sections.Failed())
}

func TestCashFlowRejectsInvertedRange(t *testing.T) {
	svc := newTestService(t, &stubFetcher{}, date(2025, 3, 20))
	_, err := svc.CashFlow(context.Background(), query.Selection{From: date(2025, 3, 5), To: date(2025, 3, 1)})
	require.ErrorIs(t, err, query.ErrInvalidSelection)
}

func TestCashFlowCompanyFilterBindsAccounts(t *testing.T) {
	f := &stubFetcher{}
	svc := newTestService(t, f, date(2025, 3, 20))

	_, err := svc.CashFlow(context.Background(), query.Selection{
		From:      date(2025, 3, 1),
		To:        date(2025, 3, 2),
		Companies: []string{registry.PlugtechGestao},
	})
	require.NoError(t, err)

	accounts := registry.Default().Accounts(registry.PlugtechGestao)
	stmt := f.find(t, "LANCAMENTOS_BANCARIO")
	require.Contains(t, stmt.Text, "lb.IDLOJA IN (SELECT cc.IDLOJA FROM CONTAS_CORRENTE cc")
	require.Len(t, stmt.Args, 4+len(accounts))
	require.Equal(t, accounts[0], stmt.Args[2])
}

func TestCashFlowBankMovementsSkipExcludedAccounts(t *testing.T) {
	f := &stubFetcher{}
	cfg := DefaultConfig()
	cfg.ExcludedAccountIDs = []int64{77}
	svc := NewService(registry.Default(), f, cfg, nil).WithNow(func() time.Time { return date(2025, 3, 20) })

	_, err := svc.CashFlow(context.Background(), query.Selection{From: date(2025, 3, 1), To: date(2025, 3, 2)})
	require.NoError(t, err)

	stmt := f.find(t, "LANCAMENTOS_BANCARIO")
	require.Contains(t, stmt.Text, "lb.IDLOJA IN (SELECT cc.IDLOJA FROM CONTAS_CORRENTE cc WHERE cc.IDCONTA_CORRENTE NOT IN (?))")
	require.Equal(t, int64(77), stmt.Args[len(stmt.Args)-1])

	balance := f.find(t, "SALDO_FECHAMENTO")
	require.Contains(t, balance.Text, "cc.IDCONTA_CORRENTE NOT IN (?)")
	require.Equal(t, []any{int64(77)}, balance.Args)
}

func TestUnknownCompanyIsReportedUnrestricted(t *testing.T) {
	svc := newTestService(t, &stubFetcher{}, date(2025, 3, 20))
	page, err := svc.CashFlow(context.Background(), query.Selection{
		From:      date(2025, 3, 1),
		To:        date(2025, 3, 2),
		Companies: []string{"Plugtech Marte"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{query.AxisCompanies}, page.Unrestricted)
}

func TestUnavailableDatabaseRendersZeroes(t *testing.T) {
	svc := newTestService(t, fetch.NewSQL(nil), date(2025, 3, 20))
	page, err := svc.CashFlow(context.Background(), query.Selection{})
	require.NoError(t, err)
	require.Equal(t, msgUnavailable, page.Notice)
	require.True(t, page.Balance.IsZero())
	require.Equal(t, SectionEmpty, page.Sections[SectionBalance].State)
}

func overdueTable() fetch.Table {
	return fetch.NewTable(
		[]string{"IDPESSOA", "CLIENTE", "VENCIMENTO", "NOMINAL", "PAGO", "TIPO", "CENTRO_CUSTO"},
		[][]any{
			{int64(1), "ACME LTDA  ", date(2025, 3, 1), 100.0, 40.0, "RE", nil},
			{int64(2), "BETA SA", date(2025, 3, 10), 200.0, nil, "RP", int64(12)},
			{int64(1), "ACME LTDA", date(2024, 12, 15), 50.0, nil, "RE", nil},
		})
}

func TestDelinquencySummary(t *testing.T) {
	f := (&stubFetcher{}).
		on("COALESCE(SUM(v.VALOR_VENDA), 0)", fetch.NewTable([]string{"TOTAL"}, [][]any{{1000.0}})).
		on("COUNT(DISTINCT v.IDPESSOA)", fetch.NewTable([]string{"CLIENTES"}, [][]any{{int64(4)}})).
		on("FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p", overdueTable())
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.Delinquency(context.Background(), query.Selection{Year: 2025, Month: 3}, time.Time{})
	require.NoError(t, err)

	require.Equal(t, date(2025, 3, 15), page.Cutoff)
	requireDecimal(t, 1000, page.Billed)
	require.EqualValues(t, 4, page.BilledClients)
	requireDecimal(t, 260, page.MonthOverdue)
	require.Equal(t, 2, page.MonthClients)
	requireDecimal(t, 310, page.AccumulatedOverdue)
	require.Equal(t, 2, page.AccumulatedClients)
	require.InDelta(t, 26.0, page.OverdueShare, 1e-9)
	require.InDelta(t, 50.0, page.ClientShare, 1e-9)

	require.Equal(t, 260.0, page.Monthly.At(3))
	require.Equal(t, 260.0, page.Running.At(12))
	require.Equal(t, 2.0, page.MonthlyClients.At(3))
	require.Zero(t, page.MonthlyClients.At(12))

	require.Len(t, page.Items, 3)
	require.Equal(t, 95, page.Items[0].DaysOverdue)
	require.Equal(t, "ACME LTDA", page.Items[0].Client)
	require.Equal(t, 19, page.Items[1].DaysOverdue)
	require.Equal(t, 10, page.Items[2].DaysOverdue)
	require.InDelta(t, 200.0/310*100, page.Items[2].Share, 1e-9)

	stmt := f.find(t, "FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p")
	require.Contains(t, stmt.Text, "cf.DATA_VENCIMENTO < ?")
	require.Contains(t, stmt.Args, date(2025, 3, 15))
	require.Contains(t, stmt.Text, "(cf.COD_CENTRO_CUSTO IS NULL OR cf.COD_CENTRO_CUSTO <> ?)")
}

func TestDelinquencyWithoutRevenueHasZeroShares(t *testing.T) {
	f := (&stubFetcher{}).on("FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p", overdueTable())
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.Delinquency(context.Background(), query.Selection{Year: 2025, Month: 3}, time.Time{})
	require.NoError(t, err)
	require.Zero(t, page.OverdueShare)
	require.Zero(t, page.ClientShare)
	require.Equal(t, SectionEmpty, page.Sections[SectionBilled].State)
}

func TestDelinquencyLegalOnly(t *testing.T) {
	f := &stubFetcher{}
	svc := newTestService(t, f, date(2025, 3, 20))

	_, err := svc.Delinquency(context.Background(), query.Selection{Legal: query.LegalOnly}, date(2025, 6, 10))
	require.NoError(t, err)

	stmt := f.find(t, "FROM CONTAS_FINANCEIRA cf JOIN PESSOAS p")
	require.Contains(t, stmt.Text, "cf.COD_CENTRO_CUSTO = ?")
	require.Equal(t, query.DefaultLegalCode, stmt.Args[len(stmt.Args)-1])
	require.Contains(t, stmt.Args, date(2025, 6, 5))
}

func overviewFetcher() *stubFetcher {
	return (&stubFetcher{}).
		onWhen("SELECT SUM(v.VALOR_VENDA) AS valor", lastArg(2025), fetch.NewTable([]string{"VALOR"}, [][]any{{640.0}})).
		onWhen("SELECT SUM(v.VALOR_VENDA) AS valor", lastArg(2024), fetch.NewTable([]string{"VALOR"}, [][]any{{300.0}})).
		on("AS mes", fetch.NewTable(
			[]string{"MES", "ATUAL", "ANTERIOR"},
			[][]any{
				{int64(1), 100.0, 50.0},
				{int64(2), 200.0, 50.0},
				{int64(3), 300.0, 50.0},
				{int64(4), 40.0, 60.0},
				{int64(12), 0.0, 90.0},
			})).
		on("AS setor", fetch.NewTable([]string{"SETOR", "VALOR"}, [][]any{{"Público", 400.0}, {"Privado", 240.0}})).
		on("AS categoria", fetch.NewTable([]string{"CATEGORIA", "VALOR"}, [][]any{{"color", 500.0}, {"other", 140.0}})).
		on("SELECT c.IDPESSOA AS id", fetch.NewTable(
			[]string{"ID", "INICIO"},
			[][]any{
				{int64(1), date(2024, 6, 1)},
				{int64(2), date(2025, 2, 10)},
				{int64(1), date(2025, 3, 1)},
				{int64(3), date(2025, 5, 5)},
			})).
		on("ce.IDCONTRATO_EQUIPAMENTO AS id", fetch.NewTable(
			[]string{"ID", "INICIO", "RETIRADA"},
			[][]any{
				{int64(10), date(2024, 1, 10), nil},
				{int64(11), date(2024, 2, 1), date(2025, 1, 31)},
			}))
}

func TestOverviewProjectsCurrentYear(t *testing.T) {
	f := overviewFetcher()
	svc := newTestService(t, f, date(2025, 4, 15))

	page, err := svc.Overview(context.Background(), query.Selection{}, time.Time{})
	require.NoError(t, err)

	require.Equal(t, 2025, page.Year)
	require.True(t, page.CurrentYear)
	require.Equal(t, 3, page.Closed)
	require.Equal(t, 640.0, page.Revenue)
	require.Equal(t, 300.0, page.PriorYear)
	require.Equal(t, 150.0, page.PriorYTD)
	require.InDelta(t, 2400.0, page.Trend, 1e-9)
	require.Equal(t, 200.0, page.Display.At(4))
	require.Equal(t, 300.0, page.Display.At(3))

	require.Equal(t, 3, page.LastMonth)
	require.InDelta(t, (640.0-150)/150*100, page.RevenueVariance, 1e-9)
	require.InDelta(t, 500.0, page.MonthVariance, 1e-9)
	require.InDelta(t, 700.0, page.TrendVariance, 1e-9)

	require.Equal(t, []Share{{Key: "Público", Label: "Público", Value: 400}, {Key: "Privado", Label: "Privado", Value: 240}}, page.BySector)
	require.Equal(t, "Impressoras Coloridas", page.ByCategory[0].Label)
	require.Equal(t, "Outros", page.ByCategory[1].Label)

	require.Equal(t, 1.0, page.Clients.Current.At(1))
	require.Equal(t, 2.0, page.Clients.Current.At(3))
	require.Equal(t, 3.0, page.Clients.Current.At(12))
	require.Zero(t, page.Clients.Previous.At(5))
	require.Equal(t, 1.0, page.Clients.Previous.At(6))
	require.Equal(t, 2.5, page.Clients.Projected.At(4))
	require.Equal(t, 6.5, page.Clients.Projected.At(12))

	require.Equal(t, 1.0, page.Equipment.Current.At(1))
	require.Equal(t, 2.0, page.Equipment.Previous.At(12))

	stmt := f.find(t, "SELECT c.IDPESSOA AS id")
	require.Contains(t, stmt.Text, "c.SITUACAO IN (?)")
	require.Equal(t, []any{query.ContractOpen}, stmt.Args)
}

func TestOverviewPastYearHasNoProjection(t *testing.T) {
	f := overviewFetcher()
	svc := newTestService(t, f, date(2026, 2, 10))

	page, err := svc.Overview(context.Background(), query.Selection{Year: 2025}, time.Time{})
	require.NoError(t, err)
	require.False(t, page.CurrentYear)
	require.Equal(t, 12, page.Closed)
	require.Equal(t, page.Revenue, page.Trend)
	require.Equal(t, page.Monthly.Current, page.Display)
	require.Equal(t, page.Clients.Current, page.Clients.Projected)
	require.Equal(t, 12, page.LastMonth)
}

func TestOverviewCategoryFilterSkipsRevenueTotals(t *testing.T) {
	f := overviewFetcher()
	svc := newTestService(t, f, date(2025, 4, 15))

	_, err := svc.Overview(context.Background(), query.Selection{
		Categories: []query.Category{query.CategoryMonitor},
		Month:      2,
	}, time.Time{})
	require.NoError(t, err)

	total := f.find(t, "SELECT SUM(v.VALOR_VENDA) AS valor")
	require.NotContains(t, total.Text, "CONTRATOS_EQUIPAMENTO")

	byCategory := f.find(t, "AS categoria")
	require.Equal(t, 1, strings.Count(byCategory.Text, "JOIN CONTRATOS_EQUIPAMENTO"))
	require.Contains(t, byCategory.Text, "EXTRACT(MONTH FROM v.DATA_VENDA) = ?")

	clients := f.find(t, "SELECT c.IDPESSOA AS id")
	require.Contains(t, clients.Text, "JOIN PRODUTOS pr ON ei.IDPRODUTO = pr.IDPRODUTO")

	equipment := f.find(t, "ce.IDCONTRATO_EQUIPAMENTO AS id")
	require.Equal(t, 1, strings.Count(equipment.Text, "CONTRATOS_EQUIPAMENTO"))
}

func TestLedgerReportCountsEveryRow(t *testing.T) {
	f := (&stubFetcher{}).on("AS fornecedor", fetch.NewTable(
		[]string{"FORNECEDOR", "VENCIMENTO", "NOMINAL", "PAGO", "TIPO", "CENTRO_CUSTO"},
		[][]any{
			{"GAMMA", date(2025, 3, 3), 100.0, 100.0, "PA", nil},
			{"DELTA", date(2025, 3, 8), 80.0, 30.0, "PA", query.DefaultLegalCode},
			{"OMEGA", date(2025, 3, 9), 20.0, nil, "PA", int64(1)},
		}))
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.Payables(context.Background(), query.Selection{})
	require.NoError(t, err)
	require.Equal(t, "payables", page.Type)
	require.Equal(t, date(2025, 3, 1), page.Selection.From)
	require.Equal(t, date(2025, 3, 31), page.Selection.To)
	require.Equal(t, 3, page.Records)
	requireDecimal(t, 70, page.OpenAmount)
	requireDecimal(t, 50, page.LegalAmount)
	require.True(t, page.Rows[1].Legal)
	require.True(t, page.Rows[0].Pending.IsZero())

	stmt := f.find(t, "AS fornecedor")
	require.NotContains(t, stmt.Text, "> 0")
	require.Equal(t, "PA", stmt.Args[0])
}

func TestReceivablesUsesReceivableTypes(t *testing.T) {
	f := &stubFetcher{}
	svc := newTestService(t, f, date(2025, 3, 20))

	page, err := svc.Receivables(context.Background(), query.Selection{From: date(2025, 1, 1), To: date(2025, 1, 31)})
	require.NoError(t, err)
	require.Empty(t, page.Rows)
	require.True(t, page.OpenAmount.IsZero())

	stmt := f.find(t, "AS cliente")
	require.Equal(t, []any{"RE", "RP"}, stmt.Args[:2])
}

func TestOverviewKeepsCalendarDaysOfUTCDates(t *testing.T) {
	f := (&stubFetcher{}).
		on("SELECT c.IDCONTRATO AS id", fetch.NewTable(
			[]string{"ID", "INICIO"},
			[][]any{
				{int64(1), date(2024, 2, 1)},
				{int64(2), date(2024, 1, 1)},
			})).
		on("ce.IDCONTRATO_EQUIPAMENTO AS id", fetch.NewTable(
			[]string{"ID", "INICIO", "RETIRADA"},
			[][]any{
				{int64(7), date(2023, 6, 1), date(2024, 1, 1)},
				{int64(8), date(2024, 3, 1), nil},
			}))
	cfg := DefaultConfig()
	cfg.Location = time.FixedZone("BRT", -3*60*60)
	svc := NewService(registry.Default(), f, cfg, nil).
		WithNow(func() time.Time { return time.Date(2025, 5, 10, 12, 0, 0, 0, cfg.Location) })

	page, err := svc.Overview(context.Background(), query.Selection{Year: 2024}, time.Time{})
	require.NoError(t, err)

	require.Equal(t, 1.0, page.Contracts.Current.At(1))
	require.Equal(t, 2.0, page.Contracts.Current.At(2))
	require.Zero(t, page.Contracts.Previous.At(12))

	require.Equal(t, 1.0, page.Equipment.Previous.At(12))
	require.Zero(t, page.Equipment.Current.At(1))
	require.Zero(t, page.Equipment.Current.At(2))
	require.Equal(t, 1.0, page.Equipment.Current.At(3))
}
