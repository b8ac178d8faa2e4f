package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

func fastDispatcher(d, s IndexBackend) *Dispatcher {
	return NewDispatcher(d, s).WithRetry(3, time.Millisecond)
}

func TestDispatcher_FetchSize(t *testing.T) {
	d := NewDispatcher(nil, nil)
	tests := []struct{ topK, want int }{
		{10, 20},
		{20, 40},
		{25, 50},
		{100, 50},
		{0, 1},
	}
	for _, tt := range tests {
		if got := d.FetchSize(tt.topK); got != tt.want {
			t.Errorf("FetchSize(%d) = %d, want %d", tt.topK, got, tt.want)
		}
	}
	if got := d.WithFetchCap(30).FetchSize(20); got != 30 {
		t.Errorf("custom cap: got %d", got)
	}
}

func TestDispatcher_BothResultsAndFilters(t *testing.T) {
	dn := &mockBackend{hits: dense("a", "b")}
	sp := &mockBackend{hits: sparse("c")}
	f := hit.Filters{Category: "shoes", PriceMax: ptr(100.0)}

	gotDense, gotSparse, err := fastDispatcher(dn, sp).Dispatch(context.Background(), "trail shoes", 10, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotDense) != 2 || len(gotSparse) != 1 {
		t.Fatalf("got %d dense, %d sparse", len(gotDense), len(gotSparse))
	}
	if dn.topKs[0] != 20 || sp.topKs[0] != 20 {
		t.Errorf("fetch sizes = %v / %v, want 20", dn.topKs, sp.topKs)
	}
	if dn.filters[0].Category != "shoes" || *sp.filters[0].PriceMax != 100 {
		t.Errorf("filters not passed through: %+v / %+v", dn.filters[0], sp.filters[0])
	}
}

func TestDispatcher_RunsConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	block := func(ctx context.Context, _ string, _ int) ([]hit.Hit, error) {
		started <- struct{}{}
		select {
		case <-release:
			return nil, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("sibling never started")
		}
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := fastDispatcher(&mockBackend{searchFn: block}, &mockBackend{searchFn: block}).
			Dispatch(context.Background(), "q", 5, hit.Filters{})
		done <- err
	}()

	for range 2 {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("backends were not called concurrently")
		}
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_EmptyBackendsReturnEmptySlices(t *testing.T) {
	gotDense, gotSparse, err := fastDispatcher(&mockBackend{}, &mockBackend{}).
		Dispatch(context.Background(), "q", 5, hit.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDense == nil || gotSparse == nil {
		t.Error("expected non-nil empty slices")
	}
}

func TestDispatcher_RetriesRateLimit(t *testing.T) {
	dn := &mockBackend{}
	dn.searchFn = func(_ context.Context, _ string, _ int) ([]hit.Hit, error) {
		if dn.calls.Load() < 3 {
			return nil, fmt.Errorf("query embedding: %w", domain.ErrRateLimited)
		}
		return dense("a"), nil
	}
	sp := &mockBackend{hits: sparse("b")}

	gotDense, _, err := fastDispatcher(dn, sp).Dispatch(context.Background(), "q", 5, hit.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dn.calls.Load() != 3 {
		t.Errorf("dense calls = %d, want 3", dn.calls.Load())
	}
	if len(gotDense) != 1 {
		t.Errorf("got %d dense hits", len(gotDense))
	}
}

func TestDispatcher_RetryExhaustionFailsWhole(t *testing.T) {
	dn := &mockBackend{err: errors.New("upstream returned 429 Too Many Requests")}
	sp := &mockBackend{hits: sparse("b")}

	gotDense, gotSparse, err := fastDispatcher(dn, sp).Dispatch(context.Background(), "q", 5, hit.Filters{})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend after exhaustion, got %v", err)
	}
	if gotDense != nil || gotSparse != nil {
		t.Error("partial results must not be returned")
	}
	if dn.calls.Load() != 3 {
		t.Errorf("dense calls = %d, want 3", dn.calls.Load())
	}
}

func TestDispatcher_PermanentErrorNotRetried(t *testing.T) {
	dn := &mockBackend{hits: dense("a")}
	sp := &mockBackend{err: fmt.Errorf("search bm25: %w", domain.ErrBackend)}

	_, _, err := fastDispatcher(dn, sp).Dispatch(context.Background(), "q", 5, hit.Filters{})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if sp.calls.Load() != 1 {
		t.Errorf("sparse calls = %d, want 1", sp.calls.Load())
	}
}

func TestDispatcher_FailureDoesNotCancelSibling(t *testing.T) {
	var siblingErr error
	sp := &mockBackend{searchFn: func(ctx context.Context, _ string, _ int) ([]hit.Hit, error) {
		time.Sleep(20 * time.Millisecond)
		siblingErr = ctx.Err()
		return sparse("b"), nil
	}}
	dn := &mockBackend{err: errors.New("boom")}

	_, _, err := fastDispatcher(dn, sp).Dispatch(context.Background(), "q", 5, hit.Filters{})
	if err == nil {
		t.Fatal("expected error")
	}
	if sp.calls.Load() != 1 {
		t.Fatal("sibling should have completed before the join returned")
	}
	if siblingErr != nil {
		t.Errorf("sibling context was cancelled: %v", siblingErr)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{domain.ErrRateLimited, true},
		{fmt.Errorf("wrap: %w", domain.ErrRateLimited), true},
		{errors.New("status 429"), true},
		{errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{errors.New("Rate limit exceeded"), true},
		{errors.New("connection refused"), false},
		{domain.ErrBackend, false},
	}
	for _, tt := range tests {
		if got := IsRateLimited(tt.err); got != tt.want {
			t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
