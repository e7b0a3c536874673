package ui

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/analytics/svg"
	"github.com/plugtech/findash/internal/series"
)

// LineRenderer abstracts SVG line chart rendering for the reports.
type LineRenderer interface {
	Line(width, height int, series []float64, labels []string, opts svg.LineOpts) (template.HTML, error)
}

// BarRenderer abstracts SVG bar chart rendering for the reports.
type BarRenderer interface {
	Bars(width, height int, seriesA, seriesB []float64, labels []string, opts svg.BarOpts) (template.HTML, error)
}

// BarChart is a prior year versus selected year comparison.
type BarChart struct {
	Labels   []string
	Previous []float64
	Current  []float64
	Opts     svg.BarOpts
}

// Render draws the chart with r.
func (c BarChart) Render(r BarRenderer, width, height int) (template.HTML, error) {
	return r.Bars(width, height, c.Previous, c.Current, c.Labels, c.Opts)
}

// LineChart is a single running series with optional columns behind it.
type LineChart struct {
	Labels []string
	Values []float64
	Opts   svg.LineOpts
}

// Render draws the chart with r.
func (c LineChart) Render(r LineRenderer, width, height int) (template.HTML, error) {
	return r.Line(width, height, c.Values, c.Labels, c.Opts)
}

// Overview chart names accepted by OverviewChart.
const (
	ChartRevenue   = "revenue"
	ChartClients   = "clients"
	ChartEquipment = "equipment"
	ChartContracts = "contracts"
)

// ErrUnknownChart is returned for chart names OverviewChart does not know.
var ErrUnknownChart = errors.New("ui: unknown chart")

// OverviewChart selects one of the overview bar charts by name.
func OverviewChart(page analytics.OverviewPage, name string) (BarChart, error) {
	switch name {
	case ChartRevenue:
		return RevenueChart(page), nil
	case ChartClients:
		return CumulativeChart(page, page.Clients, "Clientes ativos"), nil
	case ChartEquipment:
		return CumulativeChart(page, page.Equipment, "Equipamentos ativos"), nil
	case ChartContracts:
		return CumulativeChart(page, page.Contracts, "Contratos ativos"), nil
	}
	return BarChart{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// RevenueChart compares monthly revenue with the prior year. Open months of
// the current year show the projected average and are flagged as estimates.
func RevenueChart(page analytics.OverviewPage) BarChart {
	projected := make([]bool, 12)
	if page.CurrentYear && page.Closed > 0 {
		for i := page.Closed; i < 12; i++ {
			projected[i] = true
		}
	}
	return BarChart{
		Labels:   monthLabels(),
		Previous: page.Monthly.Previous.Values(),
		Current:  page.Display.Values(),
		Opts: svg.BarOpts{
			Title:        "Faturamento Mensal Comparativo",
			Description:  fmt.Sprintf("Faturamento mensal de %d comparado a %d", page.Year, page.Year-1),
			SeriesALabel: strconv.Itoa(page.Year - 1),
			SeriesBLabel: strconv.Itoa(page.Year),
			ColorA:       "#94a3b8",
			ColorB:       "#2563eb",
			Projected:    projected,
			ValueLabels:  true,
			ValuePrefix:  "R$ ",
		},
	}
}

// CumulativeChart compares month-end counts with the prior year, extending the
// current year with its growth projection.
func CumulativeChart(page analytics.OverviewPage, c analytics.Cumulative, title string) BarChart {
	projected := make([]bool, 12)
	if page.CurrentYear {
		for i := page.Closed; i < 12; i++ {
			projected[i] = true
		}
	}
	return BarChart{
		Labels:   monthLabels(),
		Previous: c.Previous.Values(),
		Current:  c.Projected.Values(),
		Opts: svg.BarOpts{
			Title:          title,
			Description:    fmt.Sprintf("%s por mês em %d e %d", title, page.Year-1, page.Year),
			SeriesALabel:   strconv.Itoa(page.Year - 1),
			SeriesBLabel:   strconv.Itoa(page.Year),
			ColorA:         "#94a3b8",
			ColorB:         "#16a34a",
			ProjectedColor: "#86efac",
			Projected:      projected,
		},
	}
}

// DelinquencyChart plots the running overdue total of the year over the
// monthly overdue values.
func DelinquencyChart(page analytics.DelinquencyPage) LineChart {
	return LineChart{
		Labels: monthLabels(),
		Values: page.Running.Values(),
		Opts: svg.LineOpts{
			Title:       "Evolução da Inadimplência",
			Description: fmt.Sprintf("Valor inadimplente por mês e acumulado em %d", page.Selection.Year),
			StrokeColor: "#dc2626",
			FillColor:   "rgba(220,38,38,0.08)",
			ShowDots:    true,
			Columns:     page.Monthly.Values(),
		},
	}
}

func monthLabels() []string {
	labels := series.MonthLabels
	return labels[:]
}
