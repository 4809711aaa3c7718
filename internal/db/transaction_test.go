package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked")

func alwaysRetry(error) bool { return true }

func TestRetry(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := retry(context.Background(), policy, alwaysRetry, func() error {
			attempts++
			if attempts < 3 {
				return errBusy
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
	})

	t.Run("stops on a permanent failure", func(t *testing.T) {
		attempts := 0
		err := retry(context.Background(), policy, func(error) bool { return false }, func() error {
			attempts++
			return errors.New("boom")
		})
		require.EqualError(t, err, "boom")
		require.Equal(t, 1, attempts)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		attempts := 0
		err := retry(context.Background(), RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, alwaysRetry, func() error {
			attempts++
			return errBusy
		})
		require.ErrorIs(t, err, errBusy)
		require.Equal(t, 2, attempts)
	})

	t.Run("honours cancellation while backing off", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := retry(ctx, RetryPolicy{Attempts: 5, Backoff: time.Hour}, alwaysRetry, func() error {
			attempts++
			cancel()
			return errBusy
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, attempts)
	})
}

func TestRetryPolicyDefaults(t *testing.T) {
	require.Equal(t, defaultRetryPolicy, RetryPolicy{}.normalize())
	require.Equal(t, RetryPolicy{Attempts: 7, Backoff: defaultRetryPolicy.Backoff}, RetryPolicy{Attempts: 7}.normalize())
}

func TestRetryTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	attempts := 0
	err := db.RetryTransaction(context.Background(), func(tx *sql.Tx) error {
		attempts++
		if attempts < 2 {
			return errBusy
		}
		_, err := tx.Exec("CREATE TABLE retried (id INTEGER)")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	_, err = db.Exec("CREATE TABLE retried (id INTEGER)")
	require.Error(t, err, "the successful attempt committed")
}

func TestRetryableSQLite(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec("CREATE TABLE uniq (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO uniq (id) VALUES (1)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO uniq (id) VALUES (1)")
	require.Error(t, err)
	require.False(t, db.Retryable(err), "constraint violations are permanent")

	require.True(t, db.Retryable(fmt.Errorf("insert: %w", errBusy)))
	require.False(t, db.Retryable(context.Canceled))
	require.False(t, db.Retryable(nil))
}

func TestRetryablePostgres(t *testing.T) {
	db := &DB{driver: DriverPostgres}

	cases := map[string]bool{
		pgSerializationFailure: true,
		pgDeadlockDetected:     true,
		"23505":                false,
	}
	for code, want := range cases {
		err := fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: code})
		require.Equal(t, want, db.Retryable(err), code)
	}
	require.False(t, db.Retryable(errBusy), "sqlite messages mean nothing to postgres")
}
