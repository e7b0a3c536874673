package fetch

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalStore is an in-process Store bounded by size and a single TTL.
type LocalStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewLocalStore creates a store holding at most size entries for ttl.
func NewLocalStore(size int, ttl time.Duration) *LocalStore {
	if size <= 0 {
		size = 512
	}
	return &LocalStore{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns ErrMiss for absent or expired keys.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

// Set stores value. The per-call ttl is ignored in favour of the store TTL.
func (s *LocalStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.cache.Add(key, value)
	return nil
}

// Bump drops every entry.
func (s *LocalStore) Bump(context.Context) error {
	s.cache.Purge()
	return nil
}

// Len returns the number of live entries.
func (s *LocalStore) Len() int {
	return s.cache.Len()
}
