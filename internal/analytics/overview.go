package analytics

import (
	"context"
	"database/sql"
	"time"

	"github.com/plugtech/findash/internal/kpi"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/series"
)

// Overview sections.
const (
	SectionRevenueYear     = "revenue_year"
	SectionRevenuePrior    = "revenue_prior_year"
	SectionRevenueMonthly  = "revenue_monthly"
	SectionRevenueSector   = "revenue_sector"
	SectionRevenueCategory = "revenue_category"
	SectionClients         = "active_clients"
	SectionEquipment       = "active_equipment"
	SectionContracts       = "active_contracts"
)

const salesHead = "FROM VENDAS v JOIN CONTRATOS c ON v.IDCONTRATO = c.IDCONTRATO"

// Share is one slice of a revenue breakdown.
type Share struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Cumulative is a month-end count for the selected and prior year. Projected
// extends the selected year past its closed months when it is the current one.
type Cumulative struct {
	Current   series.Monthly `json:"current"`
	Previous  series.Monthly `json:"previous"`
	Projected series.Monthly `json:"projected"`
}

// OverviewPage is the yearly revenue analysis.
type OverviewPage struct {
	Meta
	Year             int               `json:"year"`
	CurrentYear      bool              `json:"current_year"`
	Closed           int               `json:"closed_months"`
	Revenue          float64           `json:"revenue"`
	PriorYear        float64           `json:"prior_year"`
	PriorYTD         float64           `json:"prior_ytd"`
	Trend            float64           `json:"trend"`
	Projection       series.Projection `json:"projection"`
	LastMonth        int               `json:"last_month"`
	LastMonthRevenue float64           `json:"last_month_revenue"`
	LastMonthPrior   float64           `json:"last_month_prior"`
	RevenueVariance  float64           `json:"revenue_variance"`
	MonthVariance    float64           `json:"month_variance"`
	TrendVariance    float64           `json:"trend_variance"`
	Monthly          series.Pair       `json:"monthly"`
	Display          series.Monthly    `json:"display"`
	BreakdownMonth   int               `json:"breakdown_month"`
	BySector         []Share           `json:"by_sector"`
	ByCategory       []Share           `json:"by_category"`
	Clients          Cumulative        `json:"clients"`
	Equipment        Cumulative        `json:"equipment"`
	Contracts        Cumulative        `json:"contracts"`
}

// Overview renders the revenue overview of sel.Year. sel.Month only narrows
// the sector and category breakdowns. ref is the reference day; a zero ref
// means today.
func (s *Service) Overview(ctx context.Context, sel query.Selection, ref time.Time) (OverviewPage, error) {
	if ref.IsZero() {
		ref = s.Today()
	}
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, s.cfg.Location)
	if sel.Year == 0 {
		sel.Year = ref.Year()
	}
	if len(sel.ContractStatuses) == 0 {
		sel.ContractStatuses = []string{query.ContractOpen}
	}
	if err := sel.Validate(); err != nil {
		return OverviewPage{}, err
	}

	page := OverviewPage{
		Meta:           s.newMeta(sel, ref),
		Year:           sel.Year,
		CurrentYear:    sel.Year == ref.Year(),
		Closed:         series.ClosedMonthsFor(sel.Year, ref),
		BreakdownMonth: sel.Month,
	}

	ytd := s.yearRevenue(ctx, &page.Meta, SectionRevenueYear, sel, sel.Year)
	prior := s.yearRevenue(ctx, &page.Meta, SectionRevenuePrior, sel, sel.Year-1)
	page.Revenue = ytd.Float64
	page.PriorYear = prior.Float64
	page.Monthly = s.monthlyRevenue(ctx, &page.Meta, sel)
	summarizeRevenue(&page, ytd, prior)

	page.BySector = s.revenueBySector(ctx, &page.Meta, sel)
	page.ByCategory = s.revenueByCategory(ctx, &page.Meta, sel)

	projected := page.Closed
	if !page.CurrentYear {
		projected = 12
	}
	page.Clients = cumulativeFor(s.intervals(ctx, &page.Meta, SectionClients, sel,
		"SELECT c.IDPESSOA AS id, c.DATA_INICIO AS inicio FROM CONTRATOS c"), sel.Year, projected, series.StartedCumulative)
	page.Contracts = cumulativeFor(s.intervals(ctx, &page.Meta, SectionContracts, sel,
		"SELECT c.IDCONTRATO AS id, c.DATA_INICIO AS inicio FROM CONTRATOS c"), sel.Year, projected, series.StartedCumulative)
	page.Equipment = cumulativeFor(s.intervals(ctx, &page.Meta, SectionEquipment, sel,
		"SELECT ce.IDCONTRATO_EQUIPAMENTO AS id, c.DATA_INICIO AS inicio, ce.DATA_RETIRADA AS retirada "+
			"FROM CONTRATOS_EQUIPAMENTO ce JOIN CONTRATOS c ON ce.IDCONTRATO = c.IDCONTRATO", query.AliasContractEquipment),
		sel.Year, projected, series.ActiveCumulative)
	return page, nil
}

// summarizeRevenue derives the trend, the comparison figures and their
// variances from the yearly totals and the monthly pair.
func summarizeRevenue(page *OverviewPage, ytd, prior sql.NullFloat64) {
	page.Trend = page.Revenue
	page.Display = page.Monthly.Current
	if page.CurrentYear && page.Closed > 0 {
		page.Projection = series.Project(page.Monthly.Current, page.Closed)
		page.Trend = page.Projection.Total
		page.Display = page.Projection.Display
	}
	page.PriorYTD = page.Monthly.Previous.SumThrough(page.Closed)
	page.LastMonth = page.Closed
	if page.LastMonth > 0 {
		page.LastMonthRevenue = page.Monthly.Current.At(page.LastMonth)
		page.LastMonthPrior = page.Monthly.Previous.At(page.LastMonth)
	}

	page.RevenueVariance = kpi.Variance(ytd, sql.NullFloat64{Float64: page.PriorYTD, Valid: true})
	page.MonthVariance = kpi.Growth(page.LastMonthRevenue, page.LastMonthPrior)
	page.TrendVariance = kpi.Variance(sql.NullFloat64{Float64: page.Trend, Valid: true}, prior)
}

// revenueBuilder filters sales through their contract. Category filters do not
// apply to revenue totals since the equipment join would repeat sales rows.
func (s *Service) revenueBuilder(sel query.Selection) *query.Builder {
	return s.builder(query.Aliases{Ledger: "v", Contract: "c"}).
		Present("v", "c").
		Where("v.DATA_CANCELAMENTO IS NULL").
		Companies(sel.Companies).
		ContractStatuses(sel.ContractStatuses)
}

func (s *Service) yearRevenue(ctx context.Context, meta *Meta, section string, sel query.Selection, year int) sql.NullFloat64 {
	b := s.revenueBuilder(sel).Year("v.DATA_VENDA", year)
	table, ok := s.load(ctx, meta, section, b, "SELECT SUM(v.VALOR_VENDA) AS valor "+salesHead, nil, "")
	if !ok {
		return sql.NullFloat64{}
	}
	return table.NullFloat(0, "valor")
}

func (s *Service) monthlyRevenue(ctx context.Context, meta *Meta, sel query.Selection) series.Pair {
	loc := s.cfg.Location
	from := time.Date(sel.Year-1, time.January, 1, 0, 0, 0, 0, loc)
	to := time.Date(sel.Year, time.December, 31, 0, 0, 0, 0, loc)
	b := s.revenueBuilder(sel).DateRange("v.DATA_VENDA", from, to)
	head := "SELECT EXTRACT(MONTH FROM v.DATA_VENDA) AS mes, " +
		"SUM(CASE WHEN EXTRACT(YEAR FROM v.DATA_VENDA) = ? THEN v.VALOR_VENDA ELSE 0 END) AS atual, " +
		"SUM(CASE WHEN EXTRACT(YEAR FROM v.DATA_VENDA) = ? THEN v.VALOR_VENDA ELSE 0 END) AS anterior " + salesHead
	table, ok := s.load(ctx, meta, SectionRevenueMonthly, b, head, []any{sel.Year, sel.Year - 1},
		"GROUP BY EXTRACT(MONTH FROM v.DATA_VENDA) ORDER BY 1")
	if !ok {
		return series.Pair{}
	}
	points := make([]series.PairPoint, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		points = append(points, series.PairPoint{
			Month:    int(table.Int(i, "mes")),
			Current:  table.Float(i, "atual"),
			Previous: table.Float(i, "anterior"),
		})
	}
	return series.ReindexPair(points)
}

func (s *Service) breakdownBuilder(sel query.Selection) *query.Builder {
	return s.revenueBuilder(sel).
		Year("v.DATA_VENDA", sel.Year).
		Month("v.DATA_VENDA", sel.Month)
}

func (s *Service) revenueBySector(ctx context.Context, meta *Meta, sel query.Selection) []Share {
	const sector = "CASE p.IDGRUPO_PESSOA WHEN 8 THEN 'Público' WHEN 9 THEN 'Privado' ELSE 'Outros' END"
	b := s.breakdownBuilder(sel).Present("p")
	table, ok := s.load(ctx, meta, SectionRevenueSector, b,
		"SELECT "+sector+" AS setor, SUM(v.VALOR_VENDA) AS valor "+salesHead+" JOIN PESSOAS p ON c.IDPESSOA = p.IDPESSOA",
		nil, "GROUP BY 1 ORDER BY 2 DESC")
	if !ok {
		return []Share{}
	}
	out := make([]Share, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		label := table.String(i, "setor")
		out = append(out, Share{Key: label, Label: label, Value: table.Float(i, "valor")})
	}
	return out
}

// revenueByCategory joins the equipment chain itself, so the category
// filter reuses those joins.
func (s *Service) revenueByCategory(ctx context.Context, meta *Meta, sel query.Selection) []Share {
	expr := query.CaseExpression(query.AliasProduct + ".DESCRICAO_PRODUTO")
	b := s.breakdownBuilder(sel).
		Present(query.AliasContractEquipment, query.AliasEquipmentItem, query.AliasProduct).
		Categories(sel.Categories)
	head := "SELECT " + expr + " AS categoria, SUM(v.VALOR_VENDA) AS valor " + salesHead +
		" JOIN CONTRATOS_EQUIPAMENTO ce ON c.IDCONTRATO = ce.IDCONTRATO" +
		" JOIN EQUIPAMENTOS_ITENS ei ON ce.IDEQUIPAMENTO_ITEM = ei.IDEQUIPAMENTO_ITEM" +
		" JOIN PRODUTOS pr ON ei.IDPRODUTO = pr.IDPRODUTO"
	table, ok := s.load(ctx, meta, SectionRevenueCategory, b, head, nil, "GROUP BY 1 ORDER BY 2 DESC")
	if !ok {
		return []Share{}
	}
	out := make([]Share, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		cat := query.Category(table.String(i, "categoria"))
		out = append(out, Share{Key: string(cat), Label: cat.Label(), Value: table.Float(i, "valor")})
	}
	return out
}

// intervals loads the lifetimes behind a cumulative chart. present lists
// equipment aliases the head already joins.
func (s *Service) intervals(ctx context.Context, meta *Meta, section string, sel query.Selection, head string, present ...string) []series.Interval {
	b := s.builder(query.Aliases{Ledger: "c", Contract: "c"}).
		Present(append([]string{"c"}, present...)...).
		Companies(sel.Companies).
		ContractStatuses(sel.ContractStatuses).
		Categories(sel.Categories)
	table, ok := s.load(ctx, meta, section, b, head, nil, "")
	if !ok {
		return nil
	}
	hasEnd := table.Index("retirada") >= 0
	out := make([]series.Interval, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		start, ok := table.Time(i, "inicio")
		if !ok {
			continue
		}
		iv := series.Interval{ID: table.String(i, "id"), Start: s.civil(start)}
		if hasEnd {
			if end, ok := table.Time(i, "retirada"); ok {
				end = s.civil(end)
				iv.End = &end
			}
		}
		out = append(out, iv)
	}
	return out
}

func cumulativeFor(intervals []series.Interval, year, closed int, count func(int, []series.Interval) [12]int) Cumulative {
	c := Cumulative{
		Current:  series.Floats(count(year, intervals)),
		Previous: series.Floats(count(year-1, intervals)),
	}
	c.Projected = c.Current
	if closed < 12 {
		c.Projected = series.ProjectGrowth(c.Current, closed)
	}
	return c
}
