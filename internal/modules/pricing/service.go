// README: Pricing service computes fare estimates from the active schedule.
package pricing

import (
	"context"
	"fmt"
)

type ScheduleSource interface {
	Current(ctx context.Context) (Schedule, bool, error)
}

type Service struct {
	source   ScheduleSource
	fallback Schedule
}

// NewService returns a Service that prefers the source's schedule and uses
// fallback when the source is nil or has nothing configured.
func NewService(source ScheduleSource, fallback Schedule) *Service {
	return &Service{source: source, fallback: fallback}
}

func (s *Service) Schedule(ctx context.Context) (Schedule, error) {
	if s.source == nil {
		return s.fallback, nil
	}
	sch, ok, err := s.source.Current(ctx)
	if err != nil {
		return Schedule{}, fmt.Errorf("load fare schedule: %w", err)
	}
	if !ok {
		return s.fallback, nil
	}
	if err := sch.Validate(); err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

func (s *Service) Estimate(ctx context.Context, distanceKm float64) (float64, error) {
	sch, err := s.Schedule(ctx)
	if err != nil {
		return 0, err
	}
	return sch.Fare(distanceKm), nil
}
