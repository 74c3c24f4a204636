package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// RetryPolicy bounds retries of secondary writes (notification bookkeeping).
// User-facing sends are never retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 100 * time.Millisecond}

func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil || !retryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(time.Duration(attempt) * p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, pgx.ErrNoRows),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		isQueryUnsupported(err):
		return false
	default:
		return true
	}
}
