// Package retry runs an operation under a bounded retry policy shared by the
// fetch and notification paths.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// ErrExhausted wraps the last error once the retry ceiling is reached.
var ErrExhausted = domain.ErrExhausted

// Policy configures Do.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Retryable decides whether an error is worth another attempt. A nil
	// func treats every error as permanent.
	Retryable func(error) bool
	// BackOff yields the delay before each retry. It is reset when Do
	// starts. Nil means no delay.
	BackOff backoff.BackOff
	Clock   clock.Clock
	// OnRetry is called before sleeping for a retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

type retryAfter interface {
	RetryAfter() time.Duration
}

// Do calls op until it succeeds, fails permanently, the retry ceiling is
// reached, or ctx is done. It returns the number of attempts made and the
// final error. An error exposing RetryAfter() with a positive value overrides
// the BackOff delay for that retry.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}
	if p.BackOff != nil {
		p.BackOff.Reset()
	}

	attempts := 0
	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempts, ctxErr
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return attempts, err
		}
		if attempts > p.MaxRetries {
			return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
		}

		delay := time.Duration(0)
		if p.BackOff != nil {
			delay = p.BackOff.NextBackOff()
			if delay == backoff.Stop {
				return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
			}
		}
		var ra retryAfter
		if errors.As(err, &ra) {
			if d := ra.RetryAfter(); d > 0 {
				delay = d
			}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempts, err, delay)
		}
		if err := clk.Sleep(ctx, delay); err != nil {
			return attempts, err
		}
	}
}
