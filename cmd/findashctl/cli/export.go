package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/analytics/export"
	"github.com/plugtech/findash/internal/query"
)

// Reports is the report service the export command renders from.
type Reports interface {
	CashFlow(ctx context.Context, sel query.Selection) (analytics.CashFlowPage, error)
	Delinquency(ctx context.Context, sel query.Selection, ref time.Time) (analytics.DelinquencyPage, error)
	Overview(ctx context.Context, sel query.Selection, ref time.Time) (analytics.OverviewPage, error)
	Receivables(ctx context.Context, sel query.Selection) (analytics.LedgerPage, error)
	Payables(ctx context.Context, sel query.Selection) (analytics.LedgerPage, error)
}

// ExportOptions selects the page and the workbook destination.
type ExportOptions struct {
	Page      string
	Selection query.Selection
	Ref       time.Time
	Out       io.Writer
}

// Export renders one page into an xlsx workbook and returns the sections that
// failed, if any.
func Export(ctx context.Context, reports Reports, opts ExportOptions) ([]string, error) {
	var (
		sheets []export.Sheet
		meta   analytics.Meta
	)
	switch opts.Page {
	case "cashflow":
		page, err := reports.CashFlow(ctx, opts.Selection)
		if err != nil {
			return nil, err
		}
		sheets, meta = export.CashFlowSheets(page), page.Meta
	case "delinquency":
		page, err := reports.Delinquency(ctx, opts.Selection, opts.Ref)
		if err != nil {
			return nil, err
		}
		sheets, meta = export.DelinquencySheets(page), page.Meta
	case "overview":
		page, err := reports.Overview(ctx, opts.Selection, opts.Ref)
		if err != nil {
			return nil, err
		}
		sheets, meta = export.OverviewSheets(page), page.Meta
	case "receivables":
		page, err := reports.Receivables(ctx, opts.Selection)
		if err != nil {
			return nil, err
		}
		sheets, meta = export.LedgerSheets(page), page.Meta
	case "payables":
		page, err := reports.Payables(ctx, opts.Selection)
		if err != nil {
			return nil, err
		}
		sheets, meta = export.LedgerSheets(page), page.Meta
	default:
		return nil, fmt.Errorf("export: unknown page %q", opts.Page)
	}
	if err := export.WriteWorkbook(opts.Out, sheets); err != nil {
		return nil, err
	}
	return meta.Sections.Failed(), nil
}
