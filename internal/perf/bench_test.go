package perf

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/analytics/export"
	"github.com/plugtech/findash/internal/fetch"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/series"
)

func BenchmarkMemoHit(b *testing.B) {
	table := fetch.NewTable([]string{"mes", "total"}, [][]any{{int64(1), 10.5}, {int64(2), 20.25}})
	next := fetch.FetcherFunc(func(context.Context, query.Statement) (fetch.Table, error) {
		return table, nil
	})
	memo := fetch.NewMemo(next, fetch.NewLocalStore(64, time.Minute), time.Minute)
	stmt := query.Statement{Text: "SELECT mes, total FROM VENDAS WHERE ANO = ?", Args: []any{int64(2024)}}
	ctx := context.Background()
	if _, err := memo.Fetch(ctx, stmt); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := memo.Fetch(ctx, stmt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStartedCumulative(b *testing.B) {
	intervals := make([]series.Interval, 0, 5000)
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < cap(intervals); i++ {
		intervals = append(intervals, series.Interval{
			ID:    fmt.Sprintf("c%d", i%1500),
			Start: base.AddDate(0, 0, i%1800),
		})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = series.StartedCumulative(2024, intervals)
	}
}

func BenchmarkReindexDaily(b *testing.B) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, 0)
	var flows []series.DayFlow
	for d := from; d.Before(to); d = d.AddDate(0, 0, 3) {
		flows = append(flows, series.DayFlow{Date: d, Inflow: 100, Outflow: 40})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = series.ReindexDaily(from, to, flows)
	}
}

func BenchmarkLedgerWorkbook(b *testing.B) {
	page := analytics.LedgerPage{Type: "receivables"}
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		page.Rows = append(page.Rows, analytics.LedgerRow{
			Counterparty: fmt.Sprintf("Cliente %d", i),
			DueDate:      due.AddDate(0, 0, i%30),
			Nominal:      decimal.NewFromInt(int64(1000 + i)),
			Pending:      decimal.NewFromInt(int64(i % 700)),
		})
	}
	sheets := export.LedgerSheets(page)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := export.WriteWorkbook(io.Discard, sheets); err != nil {
			b.Fatal(err)
		}
	}
}
