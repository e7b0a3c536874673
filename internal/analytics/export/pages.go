package export

import (
	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/series"
)

// CashFlowSheets lays out the cash flow page.
func CashFlowSheets(page analytics.CashFlowPage) []Sheet {
	summary := Sheet{
		Name: "Resumo",
		Columns: []Column{
			{Header: "Saldo na Conta", Kind: KindMoney},
			{Header: "Contas a Receber", Kind: KindMoney},
			{Header: "Contas a Pagar", Kind: KindMoney},
			{Header: "Saldo Operacional", Kind: KindMoney},
		},
		Rows: [][]any{{page.Balance, page.Receivable, page.Payable, page.Operational}},
	}
	flows := Sheet{
		Name: "Fluxo_Diario",
		Columns: []Column{
			{Header: "Data", Kind: KindDate},
			{Header: "Entradas", Kind: KindMoney},
			{Header: "Saídas", Kind: KindMoney},
			{Header: "Saldo do Dia", Kind: KindMoney},
		},
	}
	for _, f := range page.Flows {
		flows.Rows = append(flows.Rows, []any{f.Date, f.Inflow, f.Outflow, f.Net()})
	}
	return []Sheet{
		summary,
		flows,
		dueSheet("Contas_a_Receber", "Cliente", "Valor Pendente", page.Receivables),
		dueSheet("Contas_a_Pagar", "Fornecedor", "Valor Nominal", page.Payables),
	}
}

func dueSheet(name, party, amount string, items []analytics.DueItem) Sheet {
	sh := Sheet{
		Name: name,
		Columns: []Column{
			{Header: "Vencimento", Kind: KindDate},
			{Header: party, Kind: KindText},
			{Header: amount, Kind: KindMoney},
		},
	}
	for _, it := range items {
		sh.Rows = append(sh.Rows, []any{it.DueDate, it.Counterparty, it.Amount})
	}
	return sh
}

// DelinquencySheets lays out the delinquency page.
func DelinquencySheets(page analytics.DelinquencyPage) []Sheet {
	summary := Sheet{
		Name: "Resumo",
		Columns: []Column{
			{Header: "Faturado no Mês", Kind: KindMoney},
			{Header: "Clientes Faturados", Kind: KindInteger},
			{Header: "Inadimplência no Mês", Kind: KindMoney},
			{Header: "Clientes Inadimplentes no Mês", Kind: KindInteger},
			{Header: "Inadimplência Acumulada", Kind: KindMoney},
			{Header: "Clientes Inadimplentes", Kind: KindInteger},
			{Header: "% do Faturamento", Kind: KindPercent},
			{Header: "% dos Clientes", Kind: KindPercent},
		},
		Rows: [][]any{{
			page.Billed, page.BilledClients,
			page.MonthOverdue, page.MonthClients,
			page.AccumulatedOverdue, page.AccumulatedClients,
			page.OverdueShare, page.ClientShare,
		}},
	}
	monthly := Sheet{
		Name: "Inadimplencia_Mensal",
		Columns: []Column{
			{Header: "Mês", Kind: KindText},
			{Header: "Valor no Mês", Kind: KindMoney},
			{Header: "Valor Acumulado", Kind: KindMoney},
			{Header: "Clientes", Kind: KindInteger},
		},
	}
	for i := range page.Monthly {
		monthly.Rows = append(monthly.Rows, []any{
			series.MonthLabels[i], page.Monthly[i], page.Running[i], int(page.MonthlyClients[i]),
		})
	}
	detail := Sheet{
		Name: "Detalhes",
		Columns: []Column{
			{Header: "Cliente", Kind: KindText},
			{Header: "Vencimento", Kind: KindDate},
			{Header: "Dias em Atraso", Kind: KindInteger},
			{Header: "Valor Pendente", Kind: KindMoney},
			{Header: "% do Total", Kind: KindPercent},
		},
	}
	for _, it := range page.Items {
		detail.Rows = append(detail.Rows, []any{it.Client, it.DueDate, it.DaysOverdue, it.Amount, it.Share})
	}
	return []Sheet{summary, monthly, detail}
}

// OverviewSheets lays out the overview page.
func OverviewSheets(page analytics.OverviewPage) []Sheet {
	revenue := Sheet{
		Name: "Faturamento_Mensal",
		Columns: []Column{
			{Header: "Mês", Kind: KindText},
			{Header: "Ano Anterior", Kind: KindMoney},
			{Header: "Ano Selecionado", Kind: KindMoney},
			{Header: "Exibição", Kind: KindMoney},
		},
	}
	for i := range page.Monthly.Current {
		revenue.Rows = append(revenue.Rows, []any{
			series.MonthLabels[i], page.Monthly.Previous[i], page.Monthly.Current[i], page.Display[i],
		})
	}
	return []Sheet{
		revenue,
		shareSheet("Faturamento_por_Setor", "Setor", page.BySector),
		shareSheet("Faturamento_por_Equipamento", "Categoria", page.ByCategory),
		cumulativeSheet("Clientes_Ativos_Mensal", page.Clients),
		cumulativeSheet("Equipamentos_Ativos_Mensal", page.Equipment),
		cumulativeSheet("Contratos_Ativos_Mensal", page.Contracts),
	}
}

func shareSheet(name, label string, shares []analytics.Share) Sheet {
	sh := Sheet{
		Name: name,
		Columns: []Column{
			{Header: label, Kind: KindText},
			{Header: "Faturamento", Kind: KindMoney},
		},
	}
	for _, s := range shares {
		sh.Rows = append(sh.Rows, []any{s.Label, s.Value})
	}
	return sh
}

func cumulativeSheet(name string, c analytics.Cumulative) Sheet {
	sh := Sheet{
		Name: name,
		Columns: []Column{
			{Header: "Mês", Kind: KindText},
			{Header: "Ano Anterior", Kind: KindNumber},
			{Header: "Ano Selecionado", Kind: KindNumber},
			{Header: "Projeção", Kind: KindNumber},
		},
	}
	for i := range c.Current {
		sh.Rows = append(sh.Rows, []any{series.MonthLabels[i], c.Previous[i], c.Current[i], c.Projected[i]})
	}
	return sh
}

// LedgerSheets lays out a receivables or payables report as a single sheet.
func LedgerSheets(page analytics.LedgerPage) []Sheet {
	party := "Cliente"
	if page.Type == "payables" {
		party = "Fornecedor"
	}
	sh := Sheet{
		Name: "Relatorio",
		Columns: []Column{
			{Header: party, Kind: KindText},
			{Header: "Vencimento", Kind: KindDate},
			{Header: "Valor Nominal", Kind: KindMoney},
			{Header: "Valor Pendente", Kind: KindMoney},
			{Header: "Jurídico", Kind: KindText},
		},
	}
	for _, r := range page.Rows {
		sh.Rows = append(sh.Rows, []any{r.Counterparty, r.DueDate, r.Nominal, r.Pending, r.Legal})
	}
	return []Sheet{sh}
}
