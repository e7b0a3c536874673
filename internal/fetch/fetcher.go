package fetch

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/plugtech/findash/internal/query"
)

// Fetcher executes a statement and returns its rows.
type Fetcher interface {
	Fetch(ctx context.Context, stmt query.Statement) (Table, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, stmt query.Statement) (Table, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, stmt query.Statement) (Table, error) {
	return f(ctx, stmt)
}

// QueryError reports a failed statement together with its text.
type QueryError struct {
	Query string
	Args  []any
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("fetch: query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Dialect selects the placeholder style of the driver.
type Dialect int

const (
	// DialectQuestion keeps "?" placeholders (Firebird).
	DialectQuestion Dialect = iota
	// DialectDollar rewrites placeholders to $1..$n (PostgreSQL).
	DialectDollar
)

// DialectFor maps a database/sql driver name onto its placeholder dialect.
func DialectFor(driver string) Dialect {
	switch driver {
	case "pgx", "postgres":
		return DialectDollar
	default:
		return DialectQuestion
	}
}

// Observer receives the outcome of every executed statement.
type Observer interface {
	ObserveQuery(duration time.Duration, err error)
}

// SQLOption customises the SQL fetcher.
type SQLOption func(*SQL)

// WithDialect sets the placeholder dialect.
func WithDialect(d Dialect) SQLOption {
	return func(s *SQL) { s.dialect = d }
}

// WithLogger sets the logger used for query failures.
func WithLogger(logger *slog.Logger) SQLOption {
	return func(s *SQL) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a query observer.
func WithObserver(o Observer) SQLOption {
	return func(s *SQL) { s.observer = o }
}

// WithRecheck sets how long an unreachable database is left alone before the
// next ping.
func WithRecheck(d time.Duration) SQLOption {
	return func(s *SQL) {
		if d > 0 {
			s.recheck = d
		}
	}
}

const (
	defaultRecheck = 30 * time.Second
	pingTimeout    = 3 * time.Second
)

// SQL fetches rows through database/sql.
type SQL struct {
	db       *sql.DB
	dialect  Dialect
	logger   *slog.Logger
	observer Observer
	recheck  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	down    bool
	checked time.Time
}

// NewSQL creates a fetcher over db. A nil db yields empty tables.
func NewSQL(db *sql.DB, opts ...SQLOption) *SQL {
	s := &SQL{db: db, logger: slog.Default(), recheck: defaultRecheck, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the database can be queried. A handle marked
// unreachable is pinged again at most once per recheck interval.
func (s *SQL) Available() bool {
	if s == nil || s.db == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.down {
		return true
	}
	now := s.now()
	if now.Sub(s.checked) < s.recheck {
		return false
	}
	s.checked = now
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("database still unreachable", slog.Any("error", err))
		return false
	}
	s.down = false
	s.logger.Info("database reachable again")
	return true
}

// MarkUnreachable makes the fetcher serve empty tables until a later ping
// succeeds.
func (s *SQL) MarkUnreachable(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.down {
		s.logger.Warn("database unreachable, serving empty tables", slog.Any("error", err))
	}
	s.down = true
	s.checked = s.now()
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Fetch runs stmt and materialises every row. Failures return an empty
// table and a *QueryError.
func (s *SQL) Fetch(ctx context.Context, stmt query.Statement) (Table, error) {
	if !s.Available() {
		return Table{}, nil
	}
	if err := stmt.Check(); err != nil {
		return Table{}, &QueryError{Query: stmt.Text, Args: stmt.Args, Err: err}
	}
	if s.dialect == DialectDollar {
		stmt = stmt.Dollar()
	}

	start := time.Now()
	table, err := s.run(ctx, stmt)
	if s.observer != nil {
		s.observer.ObserveQuery(time.Since(start), err)
	}
	if err != nil {
		if isConnectivity(err) {
			s.MarkUnreachable(err)
		}
		s.logger.Error("report query failed",
			slog.String("query", stmt.Text),
			slog.Int("args", len(stmt.Args)),
			slog.Any("error", err))
		return Table{}, &QueryError{Query: stmt.Text, Args: stmt.Args, Err: err}
	}
	return table, nil
}

func (s *SQL) run(ctx context.Context, stmt query.Statement) (Table, error) {
	rows, err := s.db.QueryContext(ctx, stmt.Text, stmt.Args...)
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Table{}, err
	}
	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Table{}, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return Table{}, err
	}
	return NewTable(columns, data), nil
}
