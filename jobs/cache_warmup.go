package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/fetch"
	jobmetrics "github.com/plugtech/findash/internal/jobs"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/registry"
)

// ScopeAll labels the warmup of the unrestricted selection.
const ScopeAll = "all"

// scopeTimeout bounds the pages rendered for a single scope.
const scopeTimeout = 20 * time.Second

// minWarmupInterval keeps short cache TTLs from hammering the database.
const minWarmupInterval = time.Minute

// WarmupSchedule returns the cron spec that rewrites memo entries twice per
// ttl, so a warmed entry is always replaced before it expires.
func WarmupSchedule(ttl time.Duration) string {
	every := (ttl / 2).Truncate(time.Second)
	if every < minWarmupInterval {
		every = minWarmupInterval
	}
	return "@every " + every.String()
}

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ErrSectionsFailed is returned when a rendered page reports failed sections.
// Failed fetches are never memoised, so the scope is still cold.
var ErrSectionsFailed = errors.New("cache warmup: sections failed")

// Reports is the part of the report service a warmup renders.
type Reports interface {
	CashFlow(ctx context.Context, sel query.Selection) (analytics.CashFlowPage, error)
	Delinquency(ctx context.Context, sel query.Selection, ref time.Time) (analytics.DelinquencyPage, error)
	Overview(ctx context.Context, sel query.Selection, ref time.Time) (analytics.OverviewPage, error)
}

// CacheWarmupJob renders the dashboard pages for every company and for all of
// them together so the first visitor hits a warm memo store.
type CacheWarmupJob struct {
	Reports  Reports
	Registry *registry.Registry
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(reports Reports, reg *registry.Registry, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{
		Reports:  reports,
		Registry: reg,
		Logger:   logger,
		Metrics:  metrics,
		clock:    time.Now,
	}
}

// WithClock overrides the clock used to pick the default year.
func (j *CacheWarmupJob) WithClock(clock func() time.Time) *CacheWarmupJob {
	j.clock = clock
	return j
}

// Handle processes cache warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cache warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	start := j.now()
	if payload.Year == 0 {
		payload.Year = start.Year()
	}

	tracker := j.metrics().Track(TaskCacheWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("year", payload.Year))
	logger.Info("starting cache warmup")

	var errs []error
	warmed := 0
	for _, scope := range j.scopes() {
		pages, err := j.warmScope(ctx, scope, payload.Year)
		j.metrics().AddWarmed(scope.label, pages)
		warmed += pages
		if err != nil {
			logger.Error("warm scope", slog.String("scope", scope.label), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", scope.label, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("completed cache warmup", slog.Int("pages", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

// warmScope returns how many pages rendered without failed sections.
func (j *CacheWarmupJob) warmScope(ctx context.Context, scope warmupScope, year int) (int, error) {
	// Refresh overwrites entries that are still stored but about to expire.
	scopeCtx, cancel := context.WithTimeout(fetch.Refresh(ctx), scopeTimeout)
	defer cancel()

	var failed []string
	pages := 0
	check := func(name string, meta analytics.Meta, err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if f := meta.Sections.Failed(); len(f) > 0 {
			failed = append(failed, name+"."+strings.Join(f, ","+name+"."))
			return nil
		}
		pages++
		return nil
	}

	overview, err := j.Reports.Overview(scopeCtx, query.Selection{Companies: scope.companies, Year: year}, time.Time{})
	if err := check("overview", overview.Meta, err); err != nil {
		return pages, err
	}
	delinquency, err := j.Reports.Delinquency(scopeCtx, query.Selection{Companies: scope.companies}, time.Time{})
	if err := check("delinquency", delinquency.Meta, err); err != nil {
		return pages, err
	}
	cashflow, err := j.Reports.CashFlow(scopeCtx, query.Selection{Companies: scope.companies})
	if err := check("cashflow", cashflow.Meta, err); err != nil {
		return pages, err
	}
	if len(failed) > 0 {
		return pages, fmt.Errorf("%w: %s", ErrSectionsFailed, strings.Join(failed, " "))
	}
	return pages, nil
}

func (j *CacheWarmupJob) scopes() []warmupScope {
	scopes := []warmupScope{{label: ScopeAll}}
	if j.Registry == nil {
		return scopes
	}
	for _, name := range j.Registry.Names() {
		scopes = append(scopes, warmupScope{label: name, companies: []string{name}})
	}
	return scopes
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CacheWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

type warmupScope struct {
	label     string
	companies []string
}
