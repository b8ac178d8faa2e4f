package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
	"github.com/kailas-cloud/prodscout/internal/logger"
	"github.com/kailas-cloud/prodscout/internal/metrics"
)

// Dispatcher defaults.
const (
	DefaultFetchCap     = 50
	DefaultMaxTries     = 3
	DefaultRetryInitial = 200 * time.Millisecond
)

// Dispatcher queries the dense and sparse indexes concurrently and joins both.
type Dispatcher struct {
	dense        IndexBackend
	sparse       IndexBackend
	fetchCap     int
	maxTries     uint
	retryInitial time.Duration
}

// NewDispatcher creates a dispatcher with default fetch cap and retry policy.
func NewDispatcher(dense, sparse IndexBackend) *Dispatcher {
	return &Dispatcher{
		dense:        dense,
		sparse:       sparse,
		fetchCap:     DefaultFetchCap,
		maxTries:     DefaultMaxTries,
		retryInitial: DefaultRetryInitial,
	}
}

// WithFetchCap overrides the per-backend candidate cap. Non-positive values are ignored.
func (d *Dispatcher) WithFetchCap(n int) *Dispatcher {
	if n > 0 {
		d.fetchCap = n
	}
	return d
}

// WithRetry overrides the attempt ceiling and the first backoff interval.
func (d *Dispatcher) WithRetry(maxTries uint, initial time.Duration) *Dispatcher {
	if maxTries > 0 {
		d.maxTries = maxTries
	}
	if initial > 0 {
		d.retryInitial = initial
	}
	return d
}

// FetchSize is the number of candidates requested from each backend: twice the
// final page depth so fusion has overlap to work with, capped.
func (d *Dispatcher) FetchSize(topK int) int {
	return max(1, min(topK*2, d.fetchCap))
}

// Dispatch runs both searches and waits for both. A failure on either side,
// after retries, fails the whole call; partial results are never returned.
// A side still rate limited when retries run out fails with domain.ErrBackend.
// The sibling call is not cancelled when one side fails.
func (d *Dispatcher) Dispatch(
	ctx context.Context, query string, topK int, f hit.Filters,
) (dense, sparse []hit.Hit, err error) {
	n := d.FetchSize(topK)

	var g errgroup.Group
	g.Go(func() error {
		hits, err := d.call(ctx, "dense", d.dense, query, n, f)
		dense = hits
		return err
	})
	g.Go(func() error {
		hits, err := d.call(ctx, "sparse", d.sparse, query, n, f)
		sparse = hits
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err //nolint:wrapcheck // call already wraps with the backend name
	}
	return dense, sparse, nil
}

func (d *Dispatcher) call(
	ctx context.Context, name string, b IndexBackend, query string, n int, f hit.Filters,
) ([]hit.Hit, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.retryInitial

	op := func() ([]hit.Hit, error) {
		hits, err := b.Search(ctx, query, n, f)
		if err == nil {
			return hits, nil
		}
		if IsRateLimited(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		metrics.IndexRetriesTotal.WithLabelValues(name).Inc()
		logger.FromContext(ctx).Warn("index rate limited, retrying",
			zap.String("backend", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	hits, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(d.maxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if IsRateLimited(err) {
			return nil, fmt.Errorf("%s search: retries exhausted: %w: %w", name, domain.ErrBackend, err)
		}
		return nil, fmt.Errorf("%s search: %w", name, err)
	}
	if hits == nil {
		hits = []hit.Hit{}
	}
	return hits, nil
}

// IsRateLimited classifies err as a transient quota failure worth retrying.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "rate limit")
}
