// README: Booking store backed by PostgreSQL; status writes are conditional updates, changes fan out via LISTEN/NOTIFY.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"toda/internal/infra"
	"toda/internal/types"
)

const notifyChannel = "booking_changes"

const selectColumns = `
	id, rider_id, rider_name, rider_phone,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, pickup_address, dropoff_address,
	distance_km, estimated_fare, actual_fare, status, driver_id, tricycle_id,
	verification_code, cancelled_by, version,
	created_at, accepted_at, started_at, completed_at, cancelled_at, rejected_at`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, rider_id, rider_name, rider_phone,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, pickup_address, dropoff_address,
			distance_km, estimated_fare, status, verification_code, version, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16
		)`,
		string(b.ID), string(b.RiderID), b.RiderName, b.RiderPhone,
		b.Pickup.Lat, b.Pickup.Lng, b.Dropoff.Lat, b.Dropoff.Lng, b.PickupAddress, b.DropoffAddress,
		b.DistanceKm, b.EstimatedFare, string(b.Status), b.VerificationCode, b.Version, b.CreatedAt,
	)
	if err != nil {
		return infra.PgError(err)
	}
	s.notify(ctx, b.ID)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra.PgError(err)
	}
	return b, nil
}

// CompareAndSetStatus writes only while status = expected. driver_id and
// tricycle_id are set once and never overwritten.
func (s *PostgresStore) CompareAndSetStatus(ctx context.Context, id types.ID, expected, next Status, f Fields) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $3::text,
		    version = version + 1,
		    driver_id = COALESCE(driver_id, NULLIF($4::text, '')),
		    tricycle_id = COALESCE(tricycle_id, NULLIF($5::text, '')),
		    actual_fare = COALESCE($6::double precision, actual_fare),
		    cancelled_by = COALESCE(NULLIF($7::text, ''), cancelled_by),
		    accepted_at = CASE WHEN $3::text = 'ACCEPTED' THEN $8::timestamptz ELSE accepted_at END,
		    started_at = CASE WHEN $3::text = 'IN_PROGRESS' THEN $8::timestamptz ELSE started_at END,
		    completed_at = CASE WHEN $3::text = 'COMPLETED' THEN $8::timestamptz ELSE completed_at END,
		    cancelled_at = CASE WHEN $3::text = 'CANCELLED' THEN $8::timestamptz ELSE cancelled_at END,
		    rejected_at = CASE WHEN $3::text = 'REJECTED' THEN $8::timestamptz ELSE rejected_at END
		WHERE id = $1 AND status = $2`,
		string(id), string(expected), string(next),
		string(f.DriverID), string(f.TricycleID), f.ActualFare, string(f.CancelledBy), f.At,
	)
	if err != nil {
		return false, infra.PgError(err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	s.notify(ctx, id)
	return true, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM bookings
		WHERE status IN ('PENDING', 'ACCEPTED', 'IN_PROGRESS')
		ORDER BY created_at`)
	if err != nil {
		return nil, infra.PgError(err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, infra.PgError(err)
		}
		out = append(out, *b)
	}
	return out, infra.PgError(rows.Err())
}

// SubscribeActive holds one pooled connection in LISTEN mode until ctx ends.
func (s *PostgresStore) SubscribeActive(ctx context.Context) (<-chan Booking, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, infra.PgError(err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, infra.PgError(err)
	}
	active, err := s.ListActive(ctx)
	if err != nil {
		conn.Release()
		return nil, err
	}

	ch := make(chan Booking, len(active)+subscriberBuffer)
	for _, b := range active {
		ch <- b
	}

	go func() {
		defer close(ch)
		defer func() {
			cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, _ = conn.Exec(cleanup, "UNLISTEN *")
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			b, err := s.Get(ctx, types.ID(n.Payload))
			if err != nil {
				continue
			}
			select {
			case ch <- *b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Record appends a lifecycle event to the audit table.
func (s *PostgresStore) Record(ctx context.Context, e Event) error {
	var actorID *string
	if e.ActorID != "" {
		v := string(e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.Actor),
		actorID,
		e.CreatedAt,
	)
	return infra.PgError(err)
}

// RiderActivity counts the bookings the rider created at or after since and
// returns the newest creation time among them.
func (s *PostgresStore) RiderActivity(ctx context.Context, riderID types.ID, since time.Time) (int, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT count(*), max(created_at)
		FROM bookings
		WHERE rider_id = $1 AND created_at >= $2`, string(riderID), since)
	var n int
	var last *time.Time
	if err := row.Scan(&n, &last); err != nil {
		return 0, time.Time{}, infra.PgError(err)
	}
	if last == nil {
		return n, time.Time{}, nil
	}
	return n, *last, nil
}

func (s *PostgresStore) notify(ctx context.Context, id types.ID) {
	_, _ = s.db.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(id))
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var driverID, tricycleID, cancelledBy *string
	err := row.Scan(
		&b.ID, &b.RiderID, &b.RiderName, &b.RiderPhone,
		&b.Pickup.Lat, &b.Pickup.Lng, &b.Dropoff.Lat, &b.Dropoff.Lng, &b.PickupAddress, &b.DropoffAddress,
		&b.DistanceKm, &b.EstimatedFare, &b.ActualFare, &b.Status, &driverID, &tricycleID,
		&b.VerificationCode, &cancelledBy, &b.Version,
		&b.CreatedAt, &b.AcceptedAt, &b.StartedAt, &b.CompletedAt, &b.CancelledAt, &b.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		b.DriverID = types.ID(*driverID)
	}
	if tricycleID != nil {
		b.TricycleID = types.ID(*tricycleID)
	}
	if cancelledBy != nil {
		b.CancelledBy = Actor(*cancelledBy)
	}
	return &b, nil
}
