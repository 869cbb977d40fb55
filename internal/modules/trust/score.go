// README: Trust score policy applied when a booking completes or is cancelled.
package trust

import "time"

const (
	MinScore     = 0
	MaxScore     = 100
	InitialScore = 100
)

type ScorePolicy struct {
	CompletionReward    int
	CancellationPenalty int
}

var DefaultScorePolicy = ScorePolicy{CompletionReward: 1, CancellationPenalty: 5}

// Adjust returns the score after the outcome, clamped to [MinScore, MaxScore].
func (p ScorePolicy) Adjust(score int, outcome BookingOutcome) int {
	switch outcome {
	case BookingCompleted:
		score += p.CompletionReward
	case BookingCancelled:
		score -= p.CancellationPenalty
	}
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Apply returns a copy of t with counters, score and last booking time updated.
func (p ScorePolicy) Apply(t RiderTrust, outcome BookingOutcome, at time.Time) RiderTrust {
	t.TotalBookings++
	switch outcome {
	case BookingCompleted:
		t.CompletedBookings++
	case BookingCancelled:
		t.CancelledBookings++
	}
	t.TrustScore = p.Adjust(t.TrustScore, outcome)
	t.LastBookingTime = at
	return t
}
