package db

import (
	"context"
	"database/sql"
	"time"
)

// PostgreSQL SQLSTATE codes worth another attempt.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// RetryPolicy bounds RetryTransaction. Backoff doubles after each failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var defaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = defaultRetryPolicy.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = defaultRetryPolicy.Backoff
	}
	return p
}

// RetryTransaction runs fn in a transaction, starting over while the failure
// is Retryable and the policy has attempts left.
func (db *DB) RetryTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return retry(ctx, db.retry.normalize(), db.Retryable, func() error {
		return db.Transaction(ctx, fn)
	})
}

func retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func() error) error {
	backoff := policy.Backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil || attempt >= policy.Attempts || !retryable(err) {
			return err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}
