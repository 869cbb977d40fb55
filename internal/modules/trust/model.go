// README: Rider trust ledger, admission security config and validation outcomes.
package trust

import (
	"errors"
	"time"

	"toda/internal/types"
)

// RiderTrust is the read-only view of a rider's booking history used at admission.
type RiderTrust struct {
	RiderID           types.ID  `json:"rider_id"`
	TotalBookings     int       `json:"total_bookings"`
	CompletedBookings int       `json:"completed_bookings"`
	CancelledBookings int       `json:"cancelled_bookings"`
	TrustScore        int       `json:"trust_score"`
	IsBlocked         bool      `json:"is_blocked"`
	LastBookingTime   time.Time `json:"last_booking_time"`
}

// CancellationRate is cancelled/total, or 0 for a rider with no bookings.
func (t RiderTrust) CancellationRate() float64 {
	if t.TotalBookings <= 0 {
		return 0
	}
	return float64(t.CancelledBookings) / float64(t.TotalBookings)
}

type SecurityConfig struct {
	MaxBookingsPerDay      int           `json:"max_bookings_per_day"`
	MinTimeBetweenBookings time.Duration `json:"min_time_between_bookings"`
	MaxCancellationRate    float64       `json:"max_cancellation_rate"`
	MinTrustScore          int           `json:"min_trust_score"`
}

var ErrInvalidSecurityConfig = errors.New("invalid security config")

func (c SecurityConfig) Validate() error {
	switch {
	case c.MaxBookingsPerDay < 1:
		return errors.Join(ErrInvalidSecurityConfig, errors.New("max bookings per day must be at least 1"))
	case c.MinTimeBetweenBookings < 0:
		return errors.Join(ErrInvalidSecurityConfig, errors.New("min time between bookings must not be negative"))
	case c.MaxCancellationRate < 0 || c.MaxCancellationRate > 1:
		return errors.Join(ErrInvalidSecurityConfig, errors.New("max cancellation rate must be within 0..1"))
	case c.MinTrustScore < 0 || c.MinTrustScore > MaxScore:
		return errors.Join(ErrInvalidSecurityConfig, errors.New("min trust score must be within 0..100"))
	}
	return nil
}

type Outcome string

const (
	OutcomeValid            Outcome = "VALID"
	OutcomePhoneNotVerified Outcome = "PHONE_NOT_VERIFIED"
	OutcomeUserBlocked      Outcome = "USER_BLOCKED"
	OutcomeLowTrustScore    Outcome = "LOW_TRUST_SCORE"
	OutcomeTooSoon          Outcome = "TOO_SOON_SINCE_LAST_BOOKING"
	OutcomeHighCancellation Outcome = "HIGH_CANCELLATION_RATE"
	OutcomeTooManyBookings  Outcome = "TOO_MANY_BOOKINGS"
)

var ErrRefused = errors.New("booking refused")

// ValidationError carries the first failing admission rule. It is recoverable:
// the rider may retry once the condition clears.
type ValidationError struct {
	Reason Outcome
}

func (e *ValidationError) Error() string {
	return ErrRefused.Error() + ": " + string(e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrRefused
}

// BookingOutcome is what a finished booking reports back to the rider's profile.
type BookingOutcome string

const (
	BookingCompleted BookingOutcome = "completed"
	BookingCancelled BookingOutcome = "cancelled"
)
