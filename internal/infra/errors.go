// README: Backing-store error classification shared by the Postgres, Redis and Firebase adapters.
package infra

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable marks a transient backing-store failure. Callers may
// retry with backoff; adapters never retry on their own.
var ErrStoreUnavailable = errors.New("store unavailable")

// PgError wraps connection-level failures as ErrStoreUnavailable. Server-side
// SQL errors and pgx.ErrNoRows pass through unchanged.
func PgError(err error) error {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// RedisError wraps every failure except redis.Nil as ErrStoreUnavailable.
func RedisError(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// RemoteError wraps any failure of a hosted service (Firebase RTDB).
func RemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
