package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type check struct {
	name string
	fn   func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	checks  []check
	timeout time.Duration
}

// New creates a Service with no components.
func New() *Service {
	return &Service{timeout: DefaultCheckTimeout}
}

// Add registers a named backend. Nil pingers are skipped.
func (s *Service) Add(name string, p Pinger) *Service {
	if p != nil {
		s.checks = append(s.checks, check{name: name, fn: p.Ping})
	}
	return s
}

// WithEmbedding registers the embedding provider check. embedding can be nil.
func (s *Service) WithEmbedding(e EmbeddingChecker) *Service {
	if e != nil {
		s.checks = append(s.checks, check{name: "embedding", fn: e.HealthCheck})
	}
	return s
}

// SessionCachePrefix is the key prefix of the session cache round trip.
const SessionCachePrefix = "health"

// WithSessionCache registers a put/get/delete round trip through the snapshot
// store under SessionCachePrefix. sc can be nil.
func (s *Service) WithSessionCache(sc SessionCache) *Service {
	if sc != nil {
		s.checks = append(s.checks, check{name: "session_cache", fn: func(ctx context.Context) error {
			return roundTrip(ctx, sc)
		}})
	}
	return s
}

type roundTripPayload struct {
	Status string `json:"status"`
	At     int64  `json:"at"`
}

func roundTrip(ctx context.Context, sc SessionCache) error {
	id := sc.GenerateKey(SessionCachePrefix)
	want, err := json.Marshal(roundTripPayload{Status: "ok", At: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if err := sc.Put(ctx, SessionCachePrefix, id, json.RawMessage(want)); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	got, getErr := sc.Get(ctx, SessionCachePrefix, id)
	delErr := sc.Delete(ctx, SessionCachePrefix, id)

	switch {
	case getErr != nil:
		return fmt.Errorf("get: %w", getErr)
	case !bytes.Equal(got, want):
		return fmt.Errorf("get: payload mismatch for %s:%s", SessionCachePrefix, id)
	case delErr != nil:
		return fmt.Errorf("delete: %w", delErr)
	}
	return nil
}

// WithTimeout overrides the per-component timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	failed := 0

	for _, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := c.fn(cctx)
		cancel()

		if err != nil {
			failed++
			checks[c.name] = CheckError
			logger.FromContext(ctx).Warn("health check failed", zap.String("component", c.name), zap.Error(err))
			continue
		}
		checks[c.name] = CheckOK
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(s.checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
