package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/kpi"
	"github.com/plugtech/findash/internal/series"
)

// ErrPDFDisabled is returned when no Gotenberg endpoint is configured.
var ErrPDFDisabled = errors.New("export: pdf rendering not configured")

// Metric is one labelled KPI of a summary.
type Metric struct {
	Label string
	Value string
	Note  string
}

// SummaryPayload aggregates what a PDF summary shows.
type SummaryPayload struct {
	Title    string
	Subtitle string
	Metrics  []Metric
	Chart    template.HTML
	Sheets   []Sheet
}

// OverviewSummary builds the PDF payload of the overview page. chart is an
// optional inline SVG.
func OverviewSummary(page analytics.OverviewPage, scope string, chart template.HTML) SummaryPayload {
	metrics := []Metric{
		{
			Label: fmt.Sprintf("Faturamento Acumulado %d", page.Year),
			Value: FormatBRL(decimal.NewFromFloat(page.Revenue)),
			Note:  FormatPercent(page.RevenueVariance) + " vs mesmo período do ano anterior",
		},
		{
			Label: fmt.Sprintf("Tendência %d", page.Year),
			Value: "R$ " + kpi.Abbreviate(page.Trend),
			Note:  FormatPercent(page.TrendVariance) + " vs ano anterior",
		},
		{Label: fmt.Sprintf("Faturamento %d", page.Year-1), Value: "R$ " + kpi.Abbreviate(page.PriorYear)},
	}
	if page.LastMonth > 0 {
		metrics = append(metrics, Metric{
			Label: fmt.Sprintf("Faturamento %s %d", series.MonthLabel(page.LastMonth), page.Year),
			Value: FormatBRL(decimal.NewFromFloat(page.LastMonthRevenue)),
			Note:  FormatPercent(page.MonthVariance) + " vs mesmo mês do ano anterior",
		})
	}
	sheets := OverviewSheets(page)
	return SummaryPayload{
		Title:    fmt.Sprintf("Visão Geral %d", page.Year),
		Subtitle: scope,
		Metrics:  metrics,
		Chart:    chart,
		Sheets:   sheets[:3],
	}
}

// PDFExporter wraps Gotenberg interactions for summary exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// Enabled reports whether an endpoint is configured.
func (p *PDFExporter) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Endpoint) != ""
}

// RenderSummary sends HTML content to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderSummary(ctx context.Context, payload SummaryPayload) ([]byte, error) {
	if !p.Enabled() {
		return nil, ErrPDFDisabled
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	html, err := buildHTML(payload)
	if err != nil {
		return nil, err
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500ms"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

var summaryTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"cell": formatHTMLCell,
}).Parse(`<html><head><meta charset="utf-8"><style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}h2{font-size:16px;}
.metrics{display:flex;flex-wrap:wrap;gap:12px;margin-bottom:16px;}
.metric{border:1px solid #ddd;padding:8px 12px;min-width:180px;}
.metric .value{font-size:18px;font-weight:bold;}.metric .note{color:#666;font-size:11px;}
table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{background:#f5f5f5;}
td:first-child,th:first-child{text-align:left;}
</style></head><body>
<h1>{{.Title}}</h1>{{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
<div class="metrics">{{range .Metrics}}<div class="metric"><div>{{.Label}}</div><div class="value">{{.Value}}</div>{{if .Note}}<div class="note">{{.Note}}</div>{{end}}</div>{{end}}</div>
{{if .Chart}}<section>{{.Chart}}</section>{{end}}
{{range .Sheets}}<section><h2>{{.Name}}</h2><table><thead><tr>{{range .Columns}}<th>{{.Header}}</th>{{end}}</tr></thead><tbody>
{{$cols := .Columns}}{{range .Rows}}<tr>{{range $i, $v := .}}<td>{{cell $cols $i $v}}</td>{{end}}</tr>
{{end}}</tbody></table></section>{{end}}
</body></html>`))

func buildHTML(payload SummaryPayload) (string, error) {
	var b strings.Builder
	if err := summaryTemplate.Execute(&b, payload); err != nil {
		return "", fmt.Errorf("export: summary html: %w", err)
	}
	return b.String(), nil
}

func formatHTMLCell(cols []Column, i int, v any) string {
	kind := KindText
	if i < len(cols) {
		kind = cols[i].Kind
	}
	switch kind {
	case KindMoney:
		switch val := v.(type) {
		case decimal.Decimal:
			return FormatBRL(val)
		case float64:
			return FormatBRL(decimal.NewFromFloat(val))
		}
	case KindPercent:
		if val, ok := v.(float64); ok {
			return FormatPercent(val)
		}
	case KindDate:
		if val, ok := v.(time.Time); ok && !val.IsZero() {
			return val.Format("02/01/2006")
		}
	}
	return formatCell(v)
}
