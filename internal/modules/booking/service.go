// README: Booking lifecycle service; every status change goes through a compare-and-set on the store.
package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"toda/internal/modules/trust"
	"toda/internal/observability"
	"toda/internal/types"
)

// Store is the backing-store contract. CompareAndSetStatus must apply the
// write only while the stored status still equals expected, and report
// whether it did.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	CompareAndSetStatus(ctx context.Context, id types.ID, expected, next Status, f Fields) (bool, error)
	ListActive(ctx context.Context) ([]Booking, error)
	SubscribeActive(ctx context.Context) (<-chan Booking, error)
}

// OutcomeRecorder receives the rider-profile side effect of finished bookings.
type OutcomeRecorder interface {
	ApplyBookingOutcome(ctx context.Context, riderID types.ID, outcome trust.BookingOutcome, at time.Time) error
}

// EventSink records lifecycle events. Failures are logged, never surfaced.
type EventSink interface {
	Record(ctx context.Context, e Event) error
}

type Service struct {
	store    Store
	profiles OutcomeRecorder
	sinks    []EventSink
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, profiles OutcomeRecorder, logger *slog.Logger, sinks ...EventSink) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		profiles: profiles,
		sinks:    sinks,
		log:      logger.With("module", "booking"),
		now:      time.Now,
	}
}

type CreateCommand struct {
	RiderID        types.ID
	RiderName      string
	RiderPhone     string
	Pickup         types.Point
	Dropoff        types.Point
	PickupAddress  string
	DropoffAddress string
	DistanceKm     float64
	EstimatedFare  float64
}

type AcceptCommand struct {
	BookingID  types.ID
	DriverID   types.ID
	TricycleID types.ID
}

type CompleteCommand struct {
	BookingID  types.ID
	ActualFare *float64
}

type CancelCommand struct {
	BookingID types.ID
	Actor     Actor
	ActorID   types.ID
}

// Create stores a new PENDING booking. Admission is decided by the caller.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if cmd.RiderID == "" || cmd.EstimatedFare < 0 || cmd.DistanceKm < 0 {
		return nil, ErrBadRequest
	}
	code, err := newVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("verification code: %w", err)
	}
	now := s.now()
	b := &Booking{
		ID:               newID(),
		RiderID:          cmd.RiderID,
		RiderName:        cmd.RiderName,
		RiderPhone:       cmd.RiderPhone,
		Pickup:           cmd.Pickup,
		Dropoff:          cmd.Dropoff,
		PickupAddress:    cmd.PickupAddress,
		DropoffAddress:   cmd.DropoffAddress,
		DistanceKm:       cmd.DistanceKm,
		EstimatedFare:    cmd.EstimatedFare,
		Status:           StatusPending,
		VerificationCode: code,
		CreatedAt:        now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	s.record(ctx, Event{
		BookingID: b.ID,
		ToStatus:  StatusPending,
		Actor:     ActorRider,
		ActorID:   b.RiderID,
		CreatedAt: now,
	})
	return b, nil
}

// Accept assigns the driver. At most one Accept succeeds per booking; every
// other caller gets ErrConflict.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Booking, error) {
	if cmd.BookingID == "" || cmd.DriverID == "" {
		return nil, ErrBadRequest
	}
	return s.transition(ctx, cmd.BookingID, TransitionAccept, ActorDriver, cmd.DriverID, func(*Booking) Fields {
		return Fields{DriverID: cmd.DriverID, TricycleID: cmd.TricycleID}
	})
}

func (s *Service) Reject(ctx context.Context, id types.ID, actor Actor, actorID types.ID) (*Booking, error) {
	return s.transition(ctx, id, TransitionReject, actor, actorID, nil)
}

func (s *Service) Start(ctx context.Context, id types.ID) (*Booking, error) {
	return s.transition(ctx, id, TransitionStart, ActorDriver, "", nil)
}

// Complete closes the trip. Without an actual fare the estimate is charged.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Booking, error) {
	if cmd.ActualFare != nil && *cmd.ActualFare < 0 {
		return nil, ErrBadRequest
	}
	b, err := s.transition(ctx, cmd.BookingID, TransitionComplete, ActorDriver, "", func(cur *Booking) Fields {
		fare := cur.EstimatedFare
		if cmd.ActualFare != nil {
			fare = *cmd.ActualFare
		}
		return Fields{ActualFare: &fare}
	})
	if err != nil {
		return nil, err
	}
	s.reportOutcome(ctx, b, trust.BookingCompleted, *b.CompletedAt)
	return b, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Booking, error) {
	if !cmd.Actor.Valid() {
		return nil, ErrBadRequest
	}
	b, err := s.transition(ctx, cmd.BookingID, TransitionCancel, cmd.Actor, cmd.ActorID, func(*Booking) Fields {
		return Fields{CancelledBy: cmd.Actor}
	})
	if err != nil {
		return nil, err
	}
	s.reportOutcome(ctx, b, trust.BookingCancelled, *b.CancelledAt)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]Booking, error) {
	return s.store.ListActive(ctx)
}

// SubscribeActive streams the currently active bookings followed by every
// later change, including the change that makes a booking terminal.
func (s *Service) SubscribeActive(ctx context.Context) (<-chan Booking, error) {
	return s.store.SubscribeActive(ctx)
}

// transition reads the booking, checks the table and writes conditioned on
// the observed status. Statuses never repeat along a booking's life, so the
// status alone is a sufficient precondition.
func (s *Service) transition(ctx context.Context, id types.ID, t Transition, actor Actor, actorID types.ID, fields func(*Booking) Fields) (*Booking, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(b.Status, t)
	if err != nil {
		if t == TransitionAccept && b.Status == StatusAccepted {
			observability.Transitions.WithLabelValues(string(t), "conflict").Inc()
			return nil, ErrConflict
		}
		observability.Transitions.WithLabelValues(string(t), "invalid").Inc()
		s.log.Warn("invalid transition", "booking_id", id, "from", b.Status, "transition", t)
		return nil, err
	}

	var f Fields
	if fields != nil {
		f = fields(b)
	}
	f.At = s.now()

	ok, err := s.store.CompareAndSetStatus(ctx, id, b.Status, next, f)
	if err != nil {
		observability.Transitions.WithLabelValues(string(t), "error").Inc()
		return nil, err
	}
	if !ok {
		observability.Transitions.WithLabelValues(string(t), "conflict").Inc()
		return nil, ErrConflict
	}
	observability.Transitions.WithLabelValues(string(t), "ok").Inc()

	from := b.Status
	b.apply(next, f)
	s.record(ctx, Event{
		BookingID:  id,
		FromStatus: from,
		ToStatus:   next,
		Actor:      actor,
		ActorID:    actorID,
		CreatedAt:  f.At,
	})
	return b, nil
}

func (s *Service) reportOutcome(ctx context.Context, b *Booking, outcome trust.BookingOutcome, at time.Time) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.ApplyBookingOutcome(ctx, b.RiderID, outcome, at); err != nil {
		s.log.Error("apply booking outcome", "booking_id", b.ID, "rider_id", b.RiderID, "outcome", outcome, "err", err)
	}
}

func (s *Service) record(ctx context.Context, e Event) {
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, e); err != nil {
			s.log.Warn("record booking event", "booking_id", e.BookingID, "to", e.ToStatus, "err", err)
		}
	}
}

func newID() types.ID {
	return types.ID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
