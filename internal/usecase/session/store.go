// Package session stores immutable result snapshots under short request ids.
// Keys are "{namespace}{prefix}:{id}". Backend outages never fail the caller's
// primary operation: writes report ErrCacheUnavailable for logging and reads
// degrade to not-found.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/db"
	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/requestid"
	"github.com/kailas-cloud/prodscout/internal/logger"
	"github.com/kailas-cloud/prodscout/internal/metrics"
)

// DefaultTTL is the lifetime of every snapshot.
const DefaultTTL = 15 * time.Minute

// Cache operation labels.
const (
	opPut    = "put"
	opGet    = "get"
	opDelete = "delete"

	resultOK    = "ok"
	resultMiss  = "miss"
	resultError = "error"
)

// Store is the session snapshot cache. Safe for concurrent use; the KV
// backend owns the connection pool.
type Store struct {
	kv        KV
	ttl       time.Duration
	namespace string
	newID     func() string
	logger    *zap.Logger
}

// New creates a Store with DefaultTTL.
func New(kv KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		ttl:    DefaultTTL,
		newID:  requestid.Generate,
		logger: logger,
	}
}

// WithTTL overrides the default TTL. Non-positive values are ignored.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// WithNamespace prefixes every key, e.g. "prodscout:". Empty by default.
func (s *Store) WithNamespace(ns string) *Store {
	s.namespace = ns
	return s
}

// TTL returns the configured snapshot lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// GenerateKey returns a fresh bare id for a snapshot under prefix. The prefix
// stays internal to the store's key scheme.
func (s *Store) GenerateKey(_ string) string {
	return s.newID()
}

// Put serializes payload and writes it with the default TTL.
func (s *Store) Put(ctx context.Context, prefix, id string, payload any) error {
	return s.PutWithTTL(ctx, prefix, id, payload, s.ttl)
}

// PutWithTTL serializes payload and writes it under prefix:id. Raw JSON
// payloads are stored as is. Backend failures wrap domain.ErrCacheUnavailable.
func (s *Store) PutWithTTL(ctx context.Context, prefix, id string, payload any, ttl time.Duration) error {
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot %s:%s: %w", prefix, id, err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	key := s.key(prefix, id)
	if err := s.kv.SetWithTTL(ctx, key, data, ttl); err != nil {
		s.inc(opPut, resultError)
		logger.FromContext(ctx).Warn("snapshot write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("put %s: %w: %w", key, domain.ErrCacheUnavailable, err)
	}
	s.inc(opPut, resultOK)
	return nil
}

// Get reads the snapshot stored under prefix:id. A miss, an expired entry and
// a backend outage all return domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, prefix, id string) (json.RawMessage, error) {
	key := s.key(prefix, id)
	data, err := s.kv.Get(ctx, key)
	switch {
	case err == nil:
		s.inc(opGet, resultOK)
		return data, nil
	case errors.Is(err, db.ErrKeyNotFound):
		s.inc(opGet, resultMiss)
	default:
		s.inc(opGet, resultError)
		logger.FromContext(ctx).Warn("snapshot read failed", zap.String("key", key), zap.Error(err))
	}
	return nil, fmt.Errorf("snapshot %s: %w", key, domain.ErrNotFound)
}

// Delete evicts prefix:id. Deleting a missing entry succeeds.
func (s *Store) Delete(ctx context.Context, prefix, id string) error {
	key := s.key(prefix, id)
	if err := s.kv.Del(ctx, key); err != nil {
		s.inc(opDelete, resultError)
		logger.FromContext(ctx).Warn("snapshot delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("delete %s: %w: %w", key, domain.ErrCacheUnavailable, err)
	}
	s.inc(opDelete, resultOK)
	return nil
}

// Lookup tries prefixes in order and returns the first snapshot found with
// the prefix that held it.
func (s *Store) Lookup(ctx context.Context, id string, prefixes ...string) (json.RawMessage, string, error) {
	for _, p := range prefixes {
		data, err := s.Get(ctx, p, id)
		if err == nil {
			return data, p, nil
		}
	}
	return nil, "", fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
}

func (s *Store) key(prefix, id string) string {
	return s.namespace + prefix + ":" + id
}

func (s *Store) inc(op, result string) {
	metrics.SnapshotCacheTotal.WithLabelValues(op, result).Inc()
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New("invalid raw json")
		}
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, errors.New("invalid raw json")
		}
		return v, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return data, nil
}
