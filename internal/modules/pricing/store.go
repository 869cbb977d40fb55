// README: Fare schedule store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"toda/internal/infra"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Current returns the newest active schedule. ok is false when the table holds none.
func (s *Store) Current(ctx context.Context) (Schedule, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT base_fare, included_km, per_km, minimum_fare, currency
		FROM fare_schedules
		WHERE active
		ORDER BY effective_at DESC
		LIMIT 1`)

	var sch Schedule
	err := row.Scan(&sch.BaseFare, &sch.IncludedKm, &sch.PerKm, &sch.MinimumFare, &sch.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, false, nil
	}
	if err != nil {
		return Schedule{}, false, infra.PgError(err)
	}
	return sch, true, nil
}
