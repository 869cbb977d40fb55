// README: Fare schedule definition; the schedule is policy and comes from config or the store.
package pricing

import (
	"errors"
	"math"
)

var ErrInvalidSchedule = errors.New("invalid fare schedule")

// Schedule is a flag-down fare covering IncludedKm, plus PerKm for every
// kilometre beyond it, never less than MinimumFare.
type Schedule struct {
	BaseFare    float64 `json:"base_fare"`
	IncludedKm  float64 `json:"included_km"`
	PerKm       float64 `json:"per_km"`
	MinimumFare float64 `json:"minimum_fare"`
	Currency    string  `json:"currency"`
}

func (s Schedule) Validate() error {
	switch {
	case s.BaseFare < 0, s.IncludedKm < 0, s.PerKm < 0, s.MinimumFare < 0:
		return errors.Join(ErrInvalidSchedule, errors.New("fare components must not be negative"))
	case s.Currency == "":
		return errors.Join(ErrInvalidSchedule, errors.New("currency is required"))
	}
	return nil
}

// Fare is monotonically non-decreasing in distanceKm. Results are rounded up
// to the nearest hundredth so rounding never breaks monotonicity.
func (s Schedule) Fare(distanceKm float64) float64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	fare := s.BaseFare
	if extra := distanceKm - s.IncludedKm; extra > 0 {
		fare += extra * s.PerKm
	}
	if fare < s.MinimumFare {
		fare = s.MinimumFare
	}
	return math.Ceil(fare*100-1e-9) / 100
}
