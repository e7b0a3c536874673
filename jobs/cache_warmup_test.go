package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/fetch"
	jobmetrics "github.com/plugtech/findash/internal/jobs"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/registry"
)

type stubReports struct {
	mu        sync.Mutex
	overview  []query.Selection
	calls     int
	refreshed int
	failFor   string
	brokenFor string
}

func (s *stubReports) record(ctx context.Context, sel query.Selection) analytics.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if fetch.Refreshing(ctx) {
		s.refreshed++
	}
	meta := analytics.Meta{Sections: analytics.Sections{"revenue": {State: analytics.SectionOK}}}
	if s.failFor != "" && len(sel.Companies) == 1 && sel.Companies[0] == s.failFor {
		meta.Sections["revenue"] = analytics.SectionStatus{State: analytics.SectionFailed}
	}
	return meta
}

func (s *stubReports) CashFlow(ctx context.Context, sel query.Selection) (analytics.CashFlowPage, error) {
	return analytics.CashFlowPage{Meta: s.record(ctx, sel)}, nil
}

func (s *stubReports) Delinquency(ctx context.Context, sel query.Selection, _ time.Time) (analytics.DelinquencyPage, error) {
	if s.brokenFor != "" && len(sel.Companies) == 0 {
		return analytics.DelinquencyPage{}, query.ErrInvalidSelection
	}
	return analytics.DelinquencyPage{Meta: s.record(ctx, sel)}, nil
}

func (s *stubReports) Overview(ctx context.Context, sel query.Selection, _ time.Time) (analytics.OverviewPage, error) {
	s.mu.Lock()
	s.overview = append(s.overview, sel)
	s.mu.Unlock()
	return analytics.OverviewPage{Meta: s.record(ctx, sel)}, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		registry.Company{Name: "Alpha", Accounts: []string{"A1"}},
		registry.Company{Name: "Beta", Accounts: []string{"B1"}},
	)
	require.NoError(t, err)
	return reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			match := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					match = false
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCacheWarmupRendersEveryScope(t *testing.T) {
	reports := &stubReports{}
	promReg := prometheus.NewRegistry()
	job := NewCacheWarmupJob(reports, testRegistry(t), nil, jobmetrics.NewMetrics(promReg)).
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	task, err := NewCacheWarmupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 9, reports.calls)
	assert.Equal(t, 9, reports.refreshed)
	require.Len(t, reports.overview, 3)
	assert.Empty(t, reports.overview[0].Companies)
	assert.Equal(t, []string{"Alpha"}, reports.overview[1].Companies)
	assert.Equal(t, []string{"Beta"}, reports.overview[2].Companies)
	for _, sel := range reports.overview {
		assert.Equal(t, 2024, sel.Year)
	}

	assert.Equal(t, 3.0, counterValue(t, promReg, "findash_cache_warmup_pages_total", map[string]string{"scope": ScopeAll}))
	assert.Equal(t, 3.0, counterValue(t, promReg, "findash_cache_warmup_pages_total", map[string]string{"scope": "Beta"}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "findash_jobs_total", map[string]string{"job": TaskCacheWarmup, "status": "success"}))
}

func TestCacheWarmupUsesPayloadYear(t *testing.T) {
	reports := &stubReports{}
	job := NewCacheWarmupJob(reports, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewCacheWarmupTask(2021)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, reports.overview, 1)
	assert.Equal(t, 2021, reports.overview[0].Year)
}

func TestCacheWarmupReportsFailedSections(t *testing.T) {
	reports := &stubReports{failFor: "Beta"}
	promReg := prometheus.NewRegistry()
	job := NewCacheWarmupJob(reports, testRegistry(t), nil, jobmetrics.NewMetrics(promReg))

	task, err := NewCacheWarmupTask(2024)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSectionsFailed)
	assert.Contains(t, err.Error(), "Beta")
	assert.Contains(t, err.Error(), "overview.revenue")

	assert.Equal(t, 9, reports.calls)
	assert.Equal(t, 3.0, counterValue(t, promReg, "findash_cache_warmup_pages_total", map[string]string{"scope": "Alpha"}))
	assert.Equal(t, 0.0, counterValue(t, promReg, "findash_cache_warmup_pages_total", map[string]string{"scope": "Beta"}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "findash_jobs_failures_total", map[string]string{"job": TaskCacheWarmup}))
}

func TestCacheWarmupStopsScopeOnRenderError(t *testing.T) {
	reports := &stubReports{brokenFor: ScopeAll}
	job := NewCacheWarmupJob(reports, testRegistry(t), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewCacheWarmupTask(2024)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidSelection)
	// all: overview only; Alpha and Beta: three pages each.
	assert.Equal(t, 7, reports.calls)
}

func TestCacheWarmupRejectsBadPayload(t *testing.T) {
	job := NewCacheWarmupJob(&stubReports{}, nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskCacheWarmup, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestCacheWarmupNotConfigured(t *testing.T) {
	var job *CacheWarmupJob
	task, err := NewCacheWarmupTask(2024)
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestNewCacheWarmupTaskValidatesYear(t *testing.T) {
	_, err := NewCacheWarmupTask(42)
	assert.ErrorIs(t, err, ErrInvalidYear)

	task, err := NewCacheWarmupTask(2024, asynq.MaxRetry(1))
	require.NoError(t, err)
	assert.Equal(t, TaskCacheWarmup, task.Type())
	assert.JSONEq(t, `{"year":2024}`, string(task.Payload()))
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestWarmupScheduleFollowsCacheTTL(t *testing.T) {
	assert.Equal(t, "@every 2m30s", WarmupSchedule(5*time.Minute))
	assert.Equal(t, "@every 30m0s", WarmupSchedule(time.Hour))
	assert.Equal(t, "@every 1m0s", WarmupSchedule(30*time.Second))
}
