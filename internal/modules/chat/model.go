// README: Rider/driver chat channels opened when a booking is accepted.
package chat

import (
	"context"
	"errors"
	"time"

	"toda/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	// ErrParticipantMismatch is returned when a channel already exists for the
	// booking with a different rider or driver.
	ErrParticipantMismatch = errors.New("chat channel participants mismatch")
)

// Channel is stored once per booking; its id is the booking id.
type Channel struct {
	ID        types.ID `json:"id"`
	BookingID types.ID `json:"booking_id"`
	RiderID   types.ID `json:"rider_id"`
	DriverID  types.ID `json:"driver_id"`
	CreatedAt int64    `json:"created_at"`
}

// Service opens channels. EnsureChannel is idempotent: a repeat call for the
// same booking returns the existing channel id.
type Service interface {
	EnsureChannel(ctx context.Context, bookingID, riderID, driverID types.ID) (types.ID, error)
}

func newChannel(bookingID, riderID, driverID types.ID, now time.Time) Channel {
	return Channel{
		ID:        bookingID,
		BookingID: bookingID,
		RiderID:   riderID,
		DriverID:  driverID,
		CreatedAt: now.UnixMilli(),
	}
}

func validate(bookingID, riderID, driverID types.ID) error {
	if bookingID == "" || riderID == "" || driverID == "" {
		return ErrBadRequest
	}
	return nil
}

// reconcile decides the outcome when a channel already exists.
func reconcile(existing Channel, riderID, driverID types.ID) (types.ID, error) {
	if existing.RiderID != riderID || existing.DriverID != driverID {
		return "", ErrParticipantMismatch
	}
	return existing.ID, nil
}
