// README: Rider profile store backed by PostgreSQL; counters are updated atomically in SQL.
package trust

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"toda/internal/infra"
	"toda/internal/types"
)

var ErrProfileNotFound = errors.New("rider profile not found")

type PostgresStore struct {
	db       *pgxpool.Pool
	policy   ScorePolicy
	defaults SecurityConfig
}

func NewPostgresStore(db *pgxpool.Pool, policy ScorePolicy, defaults SecurityConfig) *PostgresStore {
	return &PostgresStore{db: db, policy: policy, defaults: defaults}
}

// GetTrust returns nil, nil when the rider has no profile or has not verified a phone number.
func (s *PostgresStore) GetTrust(ctx context.Context, riderID types.ID) (*RiderTrust, error) {
	row := s.db.QueryRow(ctx, `
		SELECT phone_verified, total_bookings, completed_bookings, cancelled_bookings,
		       trust_score, is_blocked, last_booking_at
		FROM rider_profiles
		WHERE rider_id = $1`, string(riderID),
	)

	t := RiderTrust{RiderID: riderID}
	var verified bool
	var last *time.Time
	err := row.Scan(&verified, &t.TotalBookings, &t.CompletedBookings, &t.CancelledBookings,
		&t.TrustScore, &t.IsBlocked, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, infra.PgError(err)
	}
	if !verified {
		return nil, nil
	}
	if last != nil {
		t.LastBookingTime = *last
	}
	return &t, nil
}

func (s *PostgresStore) ApplyBookingOutcome(ctx context.Context, riderID types.ID, outcome BookingOutcome, at time.Time) error {
	var completed, cancelled, delta int
	switch outcome {
	case BookingCompleted:
		completed, delta = 1, s.policy.CompletionReward
	case BookingCancelled:
		cancelled, delta = 1, -s.policy.CancellationPenalty
	default:
		return errors.New("unknown booking outcome " + string(outcome))
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE rider_profiles
		SET total_bookings = total_bookings + 1,
		    completed_bookings = completed_bookings + $2,
		    cancelled_bookings = cancelled_bookings + $3,
		    trust_score = GREATEST($5, LEAST($6, trust_score + $4)),
		    last_booking_at = $7
		WHERE rider_id = $1`,
		string(riderID), completed, cancelled, delta, MinScore, MaxScore, at,
	)
	if err != nil {
		return infra.PgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Register creates the rider's profile with the initial score. An existing
// profile keeps its history; its phone can only move to verified.
func (s *PostgresStore) Register(ctx context.Context, riderID types.ID, phoneVerified bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rider_profiles (rider_id, phone_verified, trust_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (rider_id) DO UPDATE
		SET phone_verified = rider_profiles.phone_verified OR EXCLUDED.phone_verified`,
		string(riderID), phoneVerified, InitialScore,
	)
	return infra.PgError(err)
}

func (s *PostgresStore) SetBlocked(ctx context.Context, riderID types.ID, blocked bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE rider_profiles SET is_blocked = $2 WHERE rider_id = $1`, string(riderID), blocked)
	if err != nil {
		return infra.PgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SecurityConfig reads the operator-managed row, falling back to the configured defaults.
func (s *PostgresStore) SecurityConfig(ctx context.Context) (SecurityConfig, error) {
	row := s.db.QueryRow(ctx, `
		SELECT max_bookings_per_day, min_seconds_between_bookings, max_cancellation_rate, min_trust_score
		FROM security_config
		WHERE id = 1`)

	var cfg SecurityConfig
	var minSeconds int64
	err := row.Scan(&cfg.MaxBookingsPerDay, &minSeconds, &cfg.MaxCancellationRate, &cfg.MinTrustScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return SecurityConfig{}, infra.PgError(err)
	}
	cfg.MinTimeBetweenBookings = time.Duration(minSeconds) * time.Second
	if err := cfg.Validate(); err != nil {
		return SecurityConfig{}, err
	}
	return cfg, nil
}
