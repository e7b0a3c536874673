// Package db opens the read-only handle on the accounting database.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Drivers registered for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/nakagami/firebirdsql"
)

// Supported driver names.
const (
	DriverFirebird = "firebirdsql"
	DriverPgx      = "pgx"
)

// ErrUnreachable marks a handle whose startup ping failed.
var ErrUnreachable = errors.New("platform/db: database unreachable")

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open creates a database/sql handle for driver and checks connectivity. A
// failed ping still returns the handle together with an error wrapping
// ErrUnreachable, so callers can keep serving and retry later.
func Open(ctx context.Context, driver, dsn string, opts Options) (*sql.DB, error) {
	switch driver {
	case DriverFirebird, DriverPgx:
	default:
		return nil, fmt.Errorf("platform/db: unsupported driver %q", driver)
	}
	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		handle.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		handle.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		handle.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		return handle, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return handle, nil
}
