// ABOUTME: Shared admission gate for the model client
// ABOUTME: Token-bucket throttle plus concurrency cap with a bounded acquire wait

package model

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds in-flight model requests across all users: a token
// bucket smooths the request rate and a semaphore caps concurrency.
// Waiters give up after the acquire timeout with ErrRateLimited rather
// than queuing indefinitely.
type Gate struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewGate creates a gate allowing requestsPerMinute sustained (with
// the given burst) and at most maxConcurrent in-flight requests.
func NewGate(requestsPerMinute, burst, maxConcurrent int, acquireTimeout time.Duration) *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: acquireTimeout,
	}
}

// Acquire blocks until a slot and a rate token are available, or the
// bounded wait expires. On success the returned release func must be
// called when the request finishes.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		return nil, fmt.Errorf("%w: concurrency slot: %v", ErrRateLimited, err)
	}
	if err := g.limiter.Wait(waitCtx); err != nil {
		g.sem.Release(1)
		return nil, fmt.Errorf("%w: rate token: %v", ErrRateLimited, err)
	}
	return func() { g.sem.Release(1) }, nil
}
