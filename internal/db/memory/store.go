// Package memory is an in-process KV backend for single-node deployments and tests.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/prodscout/internal/db"
)

var _ db.KV = (*Store)(nil)

// Store keeps values in a go-cache map. Expired entries are purged every cleanup interval.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a memory store. defaultTTL applies to Set; zero means no expiry.
func NewStore(defaultTTL, cleanup time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = cache.NoExpiration
	}
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Store{cache: cache.New(defaultTTL, cleanup)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close stops nothing; the janitor goroutine dies with the cache.
func (s *Store) Close() {}

// Get returns a copy of the stored bytes.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, db.ErrKeyNotFound
	}
	v, ok := x.([]byte)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	s.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Del removes a key. Missing keys are ignored.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len reports the number of live entries.
func (s *Store) Len() int { return s.cache.ItemCount() }
