package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

// RetryPolicy is a fixed-delay policy: no backoff, no jitter.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", p.Delay)
	}
	return nil
}

// ExhaustedError is returned once every attempt has failed. It matches
// domain.ErrRetriesExhausted and the last attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{domain.ErrRetriesExhausted, e.Last}
}

type Retrier struct {
	policy RetryPolicy
	clock  ports.Clock
	logger *slog.Logger
}

func NewRetrier(policy RetryPolicy, clock ports.Clock, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Retrier{policy: policy, clock: clock, logger: loggerOrDiscard(logger)}
}

func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Retry runs fn up to MaxAttempts times, sleeping the fixed delay between
// attempts but not after the last one. Context cancellation stops the loop
// early and is reported as the exhaustion cause.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &ExhaustedError{Attempts: attempt - 1, Last: errors.Join(lastErr, err)}
		}

		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		r.logger.Warn("attempt failed",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.policy.MaxAttempts),
			slog.Any("error", err),
		)

		if attempt == r.policy.MaxAttempts {
			break
		}
		if err := r.clock.Sleep(ctx, r.policy.Delay); err != nil {
			return zero, &ExhaustedError{Attempts: attempt, Last: errors.Join(lastErr, err)}
		}
	}

	return zero, &ExhaustedError{Attempts: r.policy.MaxAttempts, Last: lastErr}
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
