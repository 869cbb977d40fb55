// README: Admission validator; pure, ordered rule evaluation.
package trust

import "time"

// DailyWindow is the rolling window the caller counts recentBookings over.
const DailyWindow = 24 * time.Hour

// Validate decides whether a rider may create a new booking. Rules are
// evaluated in a fixed order and the first failing rule wins. A nil trust
// means the rider has no verified profile yet. recentBookings is the number
// of bookings the rider created within DailyWindow before now.
func Validate(t *RiderTrust, cfg SecurityConfig, now time.Time, recentBookings int) Outcome {
	if t == nil {
		return OutcomePhoneNotVerified
	}
	if t.IsBlocked {
		return OutcomeUserBlocked
	}
	if t.TrustScore < cfg.MinTrustScore {
		return OutcomeLowTrustScore
	}
	if !t.LastBookingTime.IsZero() && now.Sub(t.LastBookingTime) < cfg.MinTimeBetweenBookings {
		return OutcomeTooSoon
	}
	if t.CancellationRate() > cfg.MaxCancellationRate {
		return OutcomeHighCancellation
	}
	if recentBookings >= cfg.MaxBookingsPerDay {
		return OutcomeTooManyBookings
	}
	return OutcomeValid
}
