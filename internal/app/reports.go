package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plugtech/findash/internal/analytics"
	"github.com/plugtech/findash/internal/fetch"
	"github.com/plugtech/findash/internal/platform/db"
	"github.com/plugtech/findash/internal/registry"
)

// Reports bundles the report service with the memo layer in front of the
// database.
type Reports struct {
	Service  *analytics.Service
	Memo     *fetch.Memo
	Registry *registry.Registry
	DB       *sql.DB
}

// Close releases the database handle.
func (r *Reports) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// ReportsDeps are the optional collaborators of BuildReports.
type ReportsDeps struct {
	Logger *slog.Logger
	// Redis selects the shared memo store. Nil keeps the memo in process.
	Redis    *redis.Client
	Queries  fetch.Observer
	Lookups  fetch.CacheObserver
	Database *sql.DB
}

// BuildReports opens the database (unless one is supplied) and assembles the
// fetcher chain and report service described by cfg. An unreachable database
// is not an error: pages render empty sections with a notice until it
// answers again.
func BuildReports(ctx context.Context, cfg *Config, deps ReportsDeps) (*Reports, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		return nil, err
	}
	reportCfg, err := cfg.Analytics()
	if err != nil {
		return nil, err
	}

	handle := deps.Database
	var pingErr error
	if handle == nil {
		handle, err = db.Open(ctx, cfg.DBDriver, cfg.DBDSN, db.Options{
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
		})
		switch {
		case errors.Is(err, db.ErrUnreachable):
			pingErr = err
		case err != nil:
			return nil, err
		}
	}

	sqlOpts := []fetch.SQLOption{
		fetch.WithDialect(fetch.DialectFor(cfg.DBDriver)),
		fetch.WithLogger(logger),
	}
	if deps.Queries != nil {
		sqlOpts = append(sqlOpts, fetch.WithObserver(deps.Queries))
	}
	fetcher := fetch.NewSQL(handle, sqlOpts...)
	if pingErr != nil {
		fetcher.MarkUnreachable(pingErr)
	}

	var store fetch.Store
	if deps.Redis != nil {
		store = fetch.NewRedisStore(deps.Redis)
	} else {
		store = fetch.NewLocalStore(cfg.CacheSize, cfg.CacheTTL)
	}
	memoOpts := []fetch.MemoOption{fetch.WithMemoLogger(logger)}
	if deps.Lookups != nil {
		memoOpts = append(memoOpts, fetch.WithCacheObserver(deps.Lookups))
	}
	memo := fetch.NewMemo(fetcher, store, cfg.CacheTTL, memoOpts...)

	logger.Info("report service ready",
		slog.String("driver", cfg.DBDriver),
		slog.Int("companies", len(reg.Names())),
		slog.Bool("shared_cache", deps.Redis != nil),
		slog.Bool("database_reachable", pingErr == nil),
	)
	return &Reports{
		Service:  analytics.NewService(reg, memo, reportCfg, logger),
		Memo:     memo,
		Registry: reg,
		DB:       handle,
	}, nil
}

