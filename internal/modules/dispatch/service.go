// README: Dispatch coordinator; admission, driver acceptance and chat channel side effects.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toda/internal/modules/booking"
	"toda/internal/modules/chat"
	"toda/internal/modules/fleet"
	"toda/internal/modules/geo"
	"toda/internal/modules/trust"
	"toda/internal/observability"
	"toda/internal/types"
)

var (
	// ErrChannelPending is returned together with an accepted booking when the
	// chat channel could not be opened. The accept itself stands; callers retry
	// with EnsureChannel.
	ErrChannelPending = errors.New("booking accepted, chat channel pending")
	ErrForbidden      = errors.New("caller may not act on this booking")
	ErrBadRequest     = errors.New("bad request")
)

// TrustSource is the rider-profile side of admission.
type TrustSource interface {
	GetTrust(ctx context.Context, riderID types.ID) (*trust.RiderTrust, error)
	SecurityConfig(ctx context.Context) (trust.SecurityConfig, error)
}

type FareEstimator interface {
	Estimate(ctx context.Context, distanceKm float64) (float64, error)
}

type Service struct {
	bookings *booking.Service
	fleet    *fleet.Service
	trust    TrustSource
	fares    FareEstimator
	chat     chat.Service
	counter  DailyCounter
	log      *slog.Logger
	now      func() time.Time
}

type Deps struct {
	Bookings *booking.Service
	Fleet    *fleet.Service
	Trust    TrustSource
	Fares    FareEstimator
	Chat     chat.Service
	Counter  DailyCounter
	Logger   *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		bookings: d.Bookings,
		fleet:    d.Fleet,
		trust:    d.Trust,
		fares:    d.Fares,
		chat:     d.Chat,
		counter:  d.Counter,
		log:      logger.With("module", "dispatch"),
		now:      time.Now,
	}
}

type Request struct {
	RiderID        types.ID
	RiderName      string
	RiderPhone     string
	Pickup         types.Point
	Dropoff        types.Point
	PickupAddress  string
	DropoffAddress string
}

type Quote struct {
	DistanceKm    float64 `json:"distance_km"`
	EstimatedFare float64 `json:"estimated_fare"`
}

// Quote prices a trip without admitting it.
func (s *Service) Quote(ctx context.Context, pickup, dropoff types.Point) (Quote, error) {
	km, err := geo.DistanceKm(pickup, dropoff)
	if err != nil {
		return Quote{}, err
	}
	fare, err := s.fares.Estimate(ctx, km)
	if err != nil {
		return Quote{}, err
	}
	return Quote{DistanceKm: km, EstimatedFare: fare}, nil
}

// RequestBooking runs admission and creates a PENDING booking when the rider
// passes every rule. A refusal is returned as *trust.ValidationError and
// leaves no state behind.
func (s *Service) RequestBooking(ctx context.Context, req Request) (*booking.Booking, error) {
	if req.RiderID == "" {
		return nil, ErrBadRequest
	}
	q, err := s.Quote(ctx, req.Pickup, req.Dropoff)
	if err != nil {
		return nil, err
	}

	rider, err := s.trust.GetTrust(ctx, req.RiderID)
	if err != nil {
		return nil, fmt.Errorf("load rider trust: %w", err)
	}
	cfg, err := s.trust.SecurityConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}
	now := s.now()
	window, err := s.counter.Recent(ctx, req.RiderID, now)
	if err != nil {
		return nil, fmt.Errorf("count recent bookings: %w", err)
	}
	if rider != nil && window.Last.After(rider.LastBookingTime) {
		cp := *rider
		cp.LastBookingTime = window.Last
		rider = &cp
	}

	outcome := trust.Validate(rider, cfg, now, window.Count)
	observability.Admissions.WithLabelValues(string(outcome)).Inc()
	if outcome != trust.OutcomeValid {
		s.log.Info("booking refused", "rider_id", req.RiderID, "reason", outcome)
		return nil, &trust.ValidationError{Reason: outcome}
	}

	b, err := s.bookings.Create(ctx, booking.CreateCommand{
		RiderID:        req.RiderID,
		RiderName:      req.RiderName,
		RiderPhone:     req.RiderPhone,
		Pickup:         req.Pickup,
		Dropoff:        req.Dropoff,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		DistanceKm:     q.DistanceKm,
		EstimatedFare:  q.EstimatedFare,
	})
	if err != nil {
		return nil, err
	}
	if err := s.counter.Record(ctx, b.RiderID, b.ID, b.CreatedAt); err != nil {
		s.log.Error("record booking in daily counter", "booking_id", b.ID, "rider_id", b.RiderID, "err", err)
	}
	s.log.Info("booking created", "booking_id", b.ID, "rider_id", b.RiderID, "fare", b.EstimatedFare)
	return b, nil
}

// Accept assigns the booking to an active driver and opens the chat channel.
// When only the channel fails, the accepted booking is returned alongside
// ErrChannelPending.
func (s *Service) Accept(ctx context.Context, bookingID, driverID types.ID) (*booking.Booking, error) {
	d, err := s.fleet.ActiveDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.Accept(ctx, booking.AcceptCommand{
		BookingID:  bookingID,
		DriverID:   d.ID,
		TricycleID: d.TricycleID,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.chat.EnsureChannel(ctx, b.ID, b.RiderID, b.DriverID); err != nil {
		observability.ChannelFailures.Inc()
		s.log.Error("open chat channel", "booking_id", b.ID, "driver_id", b.DriverID, "err", err)
		return b, fmt.Errorf("%w: %v", ErrChannelPending, err)
	}
	return b, nil
}

// EnsureChannel opens (or returns) the chat channel of an accepted booking.
func (s *Service) EnsureChannel(ctx context.Context, bookingID types.ID) (types.ID, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.DriverID == "" {
		return "", fmt.Errorf("%w: booking %s has no driver", ErrBadRequest, bookingID)
	}
	return s.chat.EnsureChannel(ctx, b.ID, b.RiderID, b.DriverID)
}

func (s *Service) Reject(ctx context.Context, bookingID types.ID, actor booking.Actor, actorID types.ID) (*booking.Booking, error) {
	return s.bookings.Reject(ctx, bookingID, actor, actorID)
}

func (s *Service) Start(ctx context.Context, bookingID, driverID types.ID) (*booking.Booking, error) {
	if err := s.requireDriver(ctx, bookingID, driverID); err != nil {
		return nil, err
	}
	return s.bookings.Start(ctx, bookingID)
}

func (s *Service) Complete(ctx context.Context, bookingID, driverID types.ID, actualFare *float64) (*booking.Booking, error) {
	if err := s.requireDriver(ctx, bookingID, driverID); err != nil {
		return nil, err
	}
	return s.bookings.Complete(ctx, booking.CompleteCommand{BookingID: bookingID, ActualFare: actualFare})
}

// Cancel lets the rider who owns the booking, its assigned driver, or an
// operator cancel it.
func (s *Service) Cancel(ctx context.Context, bookingID types.ID, actor booking.Actor, actorID types.ID) (*booking.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch actor {
	case booking.ActorRider:
		if b.RiderID != actorID {
			return nil, ErrForbidden
		}
	case booking.ActorDriver:
		if b.DriverID == "" || b.DriverID != actorID {
			return nil, ErrForbidden
		}
	}
	return s.bookings.Cancel(ctx, booking.CancelCommand{BookingID: bookingID, Actor: actor, ActorID: actorID})
}

func (s *Service) Get(ctx context.Context, bookingID types.ID) (*booking.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

// NearbyBooking is a pending booking with its pickup distance from the driver.
type NearbyBooking struct {
	booking.Booking
	PickupDistanceKm float64 `json:"pickup_distance_km"`
}

// NearbyPending lists PENDING bookings whose pickup lies within radiusKm of
// origin, closest first.
func (s *Service) NearbyPending(ctx context.Context, origin types.Point, radiusKm float64) ([]NearbyBooking, error) {
	if err := geo.ValidatePoint(origin); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", ErrBadRequest)
	}
	active, err := s.bookings.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyBooking, 0, len(active))
	for _, b := range active {
		if b.Status != booking.StatusPending {
			continue
		}
		dist, err := geo.DistanceKm(origin, b.Pickup)
		if err != nil || dist > radiusKm {
			continue
		}
		out = append(out, NearbyBooking{Booking: b, PickupDistanceKm: dist})
	}
	geo.SortByDistance(out, func(n NearbyBooking) float64 { return n.PickupDistanceKm })
	return out, nil
}

func (s *Service) SubscribeActive(ctx context.Context) (<-chan booking.Booking, error) {
	return s.bookings.SubscribeActive(ctx)
}

func (s *Service) requireDriver(ctx context.Context, bookingID, driverID types.ID) error {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.DriverID != "" && b.DriverID != driverID {
		return ErrForbidden
	}
	return nil
}
