// README: Fleet store backed by Postgres (drivers and tricycles).
package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"toda/internal/infra"
	"toda/internal/types"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateDriver(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, phone, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(d.ID), d.Name, d.Phone, d.Active, d.CreatedAt,
	)
	return createError(err)
}

func (s *PostgresStore) CreateTricycle(ctx context.Context, t *Tricycle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tricycles (id, body_number, plate_number, created_at)
		VALUES ($1, $2, $3, $4)`,
		string(t.ID), t.BodyNumber, t.PlateNumber, t.CreatedAt,
	)
	return createError(err)
}

func (s *PostgresStore) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	var d Driver
	var tricycleID *string
	err := s.db.QueryRow(ctx, `
		SELECT id, name, phone, tricycle_id, active, created_at
		FROM drivers WHERE id = $1`, string(id),
	).Scan(&d.ID, &d.Name, &d.Phone, &tricycleID, &d.Active, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra.PgError(err)
	}
	if tricycleID != nil {
		d.TricycleID = types.ID(*tricycleID)
	}
	return &d, nil
}

func (s *PostgresStore) GetTricycle(ctx context.Context, id types.ID) (*Tricycle, error) {
	var t Tricycle
	err := s.db.QueryRow(ctx, `
		SELECT id, body_number, plate_number, created_at
		FROM tricycles WHERE id = $1`, string(id),
	).Scan(&t.ID, &t.BodyNumber, &t.PlateNumber, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra.PgError(err)
	}
	return &t, nil
}

func (s *PostgresStore) SetDriverTricycle(ctx context.Context, driverID, tricycleID types.ID) error {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET tricycle_id = $2 WHERE id = $1`, string(driverID), string(tricycleID))
	if err != nil {
		return infra.PgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetDriverActive(ctx context.Context, driverID types.ID, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET active = $2 WHERE id = $1`, string(driverID), active)
	if err != nil {
		return infra.PgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func createError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return infra.PgError(err)
}
