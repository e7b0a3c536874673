package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/plugtech/findash/internal/query"
)

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("fetch: cache miss")

// Store keeps serialised tables for a limited time.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Bump(ctx context.Context) error
}

// CacheObserver receives memo hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Memo caches successful fetches by statement text and arguments.
type Memo struct {
	next     Fetcher
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
	observer CacheObserver
	group    singleflight.Group
}

// MemoOption customises a Memo.
type MemoOption func(*Memo)

// WithMemoLogger sets the logger used when the store misbehaves.
func WithMemoLogger(logger *slog.Logger) MemoOption {
	return func(m *Memo) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCacheObserver registers a hit/miss observer.
func WithCacheObserver(o CacheObserver) MemoOption {
	return func(m *Memo) { m.observer = o }
}

type refreshKey struct{}

// Refresh marks ctx so a Memo reloads every statement and overwrites the
// stored entry instead of serving it.
func Refresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// Refreshing reports whether ctx was marked by Refresh.
func Refreshing(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// NewMemo wraps next with store. A nil store disables caching.
func NewMemo(next Fetcher, store Store, ttl time.Duration, opts ...MemoOption) *Memo {
	m := &Memo{next: next, store: store, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch returns a cached table when present, otherwise loads it once for all
// concurrent callers. Failed loads and tables served while the database is
// unreachable are never stored.
func (m *Memo) Fetch(ctx context.Context, stmt query.Statement) (Table, error) {
	if m.store == nil {
		return m.next.Fetch(ctx, stmt)
	}
	key, err := Key(stmt)
	if err != nil {
		return m.next.Fetch(ctx, stmt)
	}

	refresh := Refreshing(ctx)
	if !refresh {
		if raw, err := m.store.Get(ctx, key); err == nil {
			var table Table
			if err := json.Unmarshal(raw, &table); err == nil {
				m.observe(true)
				return table, nil
			}
			m.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
		} else if !errors.Is(err, ErrMiss) {
			m.logger.Warn("cache read failed", slog.Any("error", err))
		}
	}
	m.observe(false)

	group := key
	if refresh {
		group = "refresh:" + key
	}
	v, err, _ := m.group.Do(group, func() (any, error) {
		table, err := m.next.Fetch(ctx, stmt)
		if err != nil {
			return table, err
		}
		if !m.Available() {
			// Empty placeholder from an unreachable database.
			return table, nil
		}
		raw, err := json.Marshal(table)
		if err != nil {
			m.logger.Warn("cache encode failed", slog.Any("error", err))
			return table, nil
		}
		if err := m.store.Set(ctx, key, raw, m.ttl); err != nil {
			m.logger.Warn("cache write failed", slog.Any("error", err))
		}
		return table, nil
	})
	table, _ := v.(Table)
	return table, err
}

// Invalidate drops every cached entry.
func (m *Memo) Invalidate(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Bump(ctx)
}

// Available delegates to the wrapped fetcher when it knows whether a database
// is configured.
func (m *Memo) Available() bool {
	if a, ok := m.next.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

func (m *Memo) observe(hit bool) {
	if m.observer != nil {
		m.observer.ObserveCache(hit)
	}
}

// Key derives the cache key of a statement from its text and typed arguments.
func Key(stmt query.Statement) (string, error) {
	h := sha256.New()
	h.Write([]byte(stmt.Text))
	for _, arg := range stmt.Args {
		c, err := encodeCell(arg)
		if err != nil {
			return "", fmt.Errorf("fetch: key arg: %w", err)
		}
		h.Write([]byte{0})
		h.Write([]byte(c.Kind))
		h.Write([]byte{':'})
		h.Write([]byte(c.Value))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
