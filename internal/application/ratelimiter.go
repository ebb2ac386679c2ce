package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

// RateLimiter bounds in-flight calls to the shared retrieval backend. A
// single instance is shared by every session in the process.
type RateLimiter struct {
	sem      *semaphore.Weighted
	capacity int
	pacing   time.Duration
	clock    ports.Clock
	inFlight atomic.Int64
}

func NewRateLimiter(capacity int, pacing time.Duration, clock ports.Clock) (*RateLimiter, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("rate limit capacity must be at least 1, got %d", capacity)
	}
	if pacing < 0 {
		return nil, fmt.Errorf("rate limit pacing must not be negative, got %s", pacing)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &RateLimiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		pacing:   pacing,
		clock:    clock,
	}, nil
}

func (l *RateLimiter) Capacity() int {
	return l.capacity
}

// InFlight reports the number of permits currently held.
func (l *RateLimiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Do runs fn while holding one permit. The pacing delay is applied after the
// permit is acquired and before fn starts. The permit is released on every
// exit path, including a panic in fn.
func (l *RateLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire rate limit permit: %w", err)
	}
	l.inFlight.Add(1)
	defer func() {
		l.inFlight.Add(-1)
		l.sem.Release(1)
	}()

	if l.pacing > 0 {
		if err := l.clock.Sleep(ctx, l.pacing); err != nil {
			return fmt.Errorf("rate limit pacing: %w", err)
		}
	}

	return fn(ctx)
}

// Limited is Do for calls that produce a value.
func Limited[T any](ctx context.Context, l *RateLimiter, fn func(ctx context.Context) (T, error)) (T, error) {
	var value T
	err := l.Do(ctx, func(ctx context.Context) error {
		var err error
		value, err = fn(ctx)
		return err
	})
	return value, err
}
