package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/analytics/export"
	"github.com/plugtech/findash/internal/analytics/svg"
	"github.com/plugtech/findash/internal/analytics/ui"
	"github.com/plugtech/findash/internal/platform/httpx"
	"github.com/plugtech/findash/internal/query"
)

const requestTimeout = 25 * time.Second

// Report page names used in routes.
const (
	PageCashFlow    = "cashflow"
	PageDelinquency = "delinquency"
	PageOverview    = "overview"
	PageReceivables = "receivables"
	PagePayables    = "payables"
)

var errUnknownPage = errors.New("analytics: unknown report page")

// ReportService defines the report contract used by the handler.
type ReportService interface {
	CashFlow(ctx context.Context, sel query.Selection) (analytics.CashFlowPage, error)
	Delinquency(ctx context.Context, sel query.Selection, ref time.Time) (analytics.DelinquencyPage, error)
	Overview(ctx context.Context, sel query.Selection, ref time.Time) (analytics.OverviewPage, error)
	Receivables(ctx context.Context, sel query.Selection) (analytics.LedgerPage, error)
	Payables(ctx context.Context, sel query.Selection) (analytics.LedgerPage, error)
}

// PDFService renders summaries to PDF bytes.
type PDFService interface {
	Enabled() bool
	RenderSummary(ctx context.Context, payload export.SummaryPayload) ([]byte, error)
}

// CacheAdmin drops memoised query results.
type CacheAdmin interface {
	Invalidate(ctx context.Context) error
}

// WarmupEnqueuer schedules a background cache warmup and returns its task id.
type WarmupEnqueuer interface {
	EnqueueWarmup(ctx context.Context, year int) (string, error)
}

// Handler serves the report pages, their exports and charts.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	line    ui.LineRenderer
	bar     ui.BarRenderer
	pdf     PDFService
	cache   CacheAdmin
	warmup  WarmupEnqueuer
	loc     *time.Location
	bufPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, line ui.LineRenderer, bar ui.BarRenderer, pdf PDFService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:  logger,
		service: service,
		line:    line,
		bar:     bar,
		pdf:     pdf,
		loc:     time.UTC,
		now:     time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithLocation sets the zone request dates are parsed in.
func (h *Handler) WithLocation(loc *time.Location) {
	if loc != nil {
		h.loc = loc
	}
}

// WithCacheAdmin enables the cache invalidation endpoint.
func (h *Handler) WithCacheAdmin(c CacheAdmin) { h.cache = c }

// WithWarmup enables the cache warmup endpoint.
func (h *Handler) WithWarmup(w WarmupEnqueuer) { h.warmup = w }

// rendered is one report page with its tabular layout.
type rendered struct {
	page     any
	sheets   func() []export.Sheet
	filename string
}

func (h *Handler) render(ctx context.Context, name string, sel query.Selection, ref time.Time) (rendered, error) {
	stamp := h.now().In(h.loc).Format("20060102")
	switch name {
	case PageCashFlow:
		page, err := h.service.CashFlow(ctx, sel)
		return rendered{page, func() []export.Sheet { return export.CashFlowSheets(page) }, "fluxo_de_caixa_" + stamp}, err
	case PageDelinquency:
		page, err := h.service.Delinquency(ctx, sel, ref)
		filename := fmt.Sprintf("inadimplencia_%d_%02d", page.Selection.Year, page.Selection.Month)
		return rendered{page, func() []export.Sheet { return export.DelinquencySheets(page) }, filename}, err
	case PageOverview:
		page, err := h.service.Overview(ctx, sel, ref)
		return rendered{page, func() []export.Sheet { return export.OverviewSheets(page) }, fmt.Sprintf("relatorio_geral_%d", page.Year)}, err
	case PageReceivables:
		page, err := h.service.Receivables(ctx, sel)
		return rendered{page, func() []export.Sheet { return export.LedgerSheets(page) }, "relatorio_contas_a_receber_" + stamp}, err
	case PagePayables:
		page, err := h.service.Payables(ctx, sel)
		return rendered{page, func() []export.Sheet { return export.LedgerSheets(page) }, "relatorio_contas_a_pagar_" + stamp}, err
	}
	return rendered{}, errUnknownPage
}

// load parses the filters and renders the page named by the route.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, name string) (rendered, context.Context, context.CancelFunc, bool) {
	sel, ref, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return rendered{}, nil, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	out, err := h.render(ctx, name, sel, ref)
	if err != nil {
		cancel()
		h.handleRenderError(w, name, err)
		return rendered{}, nil, nil, false
	}
	return out, ctx, cancel, true
}

func (h *Handler) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, _, cancel, ok := h.load(w, r, name)
		if !ok {
			return
		}
		defer cancel()
		httpx.JSON(w, http.StatusOK, out.page)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	out, _, cancel, ok := h.load(w, r, name)
	if !ok {
		return
	}
	defer cancel()

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := export.WriteWorkbook(buf, out.sheets()); err != nil {
		h.handleServerError(w, "write workbook", err)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", out.filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream workbook", err)
	}
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	out, _, cancel, ok := h.load(w, r, name)
	if !ok {
		return
	}
	defer cancel()

	sheet, err := pickSheet(out.sheets(), strings.TrimSpace(r.URL.Query().Get("sheet")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := export.WriteCSV(buf, sheet); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}
	filename := fmt.Sprintf("%s_%s.csv", out.filename, strings.ToLower(export.SanitizeSheetName(sheet.Name)))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

// pickSheet returns the requested sheet, or the first one when requested is
// empty.
func pickSheet(sheets []export.Sheet, requested string) (export.Sheet, error) {
	if len(sheets) == 0 {
		return export.Sheet{}, fmt.Errorf("%w: page has no sheets", httpx.ErrNotFound)
	}
	if requested == "" {
		return sheets[0], nil
	}
	found, err := export.Find(sheets, requested)
	if err != nil {
		return export.Sheet{}, fmt.Errorf("%w: sheet %q; available: %s",
			httpx.ErrValidation, requested, strings.Join(export.Names(sheets), ", "))
	}
	return found, nil
}

func (h *Handler) handleOverviewChart(w http.ResponseWriter, r *http.Request) {
	if h.bar == nil {
		h.handleServerError(w, "overview chart", errors.New("svg renderer missing"))
		return
	}
	out, _, cancel, ok := h.load(w, r, PageOverview)
	if !ok {
		return
	}
	defer cancel()

	chart, err := ui.OverviewChart(out.page.(analytics.OverviewPage), chi.URLParam(r, "chart"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	}
	html, err := chart.Render(h.bar, svg.DefaultWidth, svg.DefaultHeight)
	if err != nil {
		h.handleServerError(w, "render chart", err)
		return
	}
	h.writeSVG(w, html)
}

func (h *Handler) handleDelinquencyChart(w http.ResponseWriter, r *http.Request) {
	if h.line == nil {
		h.handleServerError(w, "delinquency chart", errors.New("svg renderer missing"))
		return
	}
	out, _, cancel, ok := h.load(w, r, PageDelinquency)
	if !ok {
		return
	}
	defer cancel()

	html, err := ui.DelinquencyChart(out.page.(analytics.DelinquencyPage)).Render(h.line, svg.DefaultWidth, svg.DefaultHeight)
	if err != nil {
		h.handleServerError(w, "render chart", err)
		return
	}
	h.writeSVG(w, html)
}

func (h *Handler) writeSVG(w http.ResponseWriter, body template.HTML) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(body)); err != nil {
		h.logError("stream svg", err)
	}
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil || !h.pdf.Enabled() {
		httpx.RespondError(w, fmt.Errorf("%w: pdf rendering is not configured", httpx.ErrUnavailable))
		return
	}
	out, ctx, cancel, ok := h.load(w, r, PageOverview)
	if !ok {
		return
	}
	defer cancel()

	page := out.page.(analytics.OverviewPage)
	var chart template.HTML
	if h.bar != nil {
		html, err := ui.RevenueChart(page).Render(h.bar, svg.DefaultWidth, svg.DefaultHeight)
		if err != nil {
			h.logError("render summary chart", err)
		}
		chart = html
	}
	payload := export.OverviewSummary(page, scopeLabel(page.Selection), chart)
	pdfBytes, err := h.pdf.RenderSummary(ctx, payload)
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.pdf\"", out.filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func scopeLabel(sel query.Selection) string {
	if sel.AllCompanies() {
		return "Todas as empresas"
	}
	return strings.Join(sel.Companies, ", ")
}

func (h *Handler) handleWarmup(w http.ResponseWriter, r *http.Request) {
	if h.warmup == nil {
		httpx.RespondError(w, fmt.Errorf("%w: background queue is not configured", httpx.ErrUnavailable))
		return
	}
	year, err := parseInt(r.URL.Query(), "year", 1900, 9999)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	if year == 0 {
		year = h.now().In(h.loc).Year()
	}
	id, err := h.warmup.EnqueueWarmup(r.Context(), year)
	if err != nil {
		h.handleServerError(w, "enqueue warmup", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": id, "year": year})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.RespondError(w, fmt.Errorf("%w: cache is not configured", httpx.ErrUnavailable))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.handleServerError(w, "invalidate cache", err)
		return
	}
	h.logger.Info("report cache invalidated")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, vErr.Error()))
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleRenderError(w http.ResponseWriter, page string, err error) {
	switch {
	case errors.Is(err, errUnknownPage):
		httpx.RespondError(w, fmt.Errorf("%w: unknown report %q", httpx.ErrNotFound, page))
	case errors.Is(err, query.ErrInvalidSelection):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	default:
		h.handleServerError(w, "render "+page, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
