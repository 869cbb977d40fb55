// README: Booking aggregate, status definitions and the lifecycle transition table.
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"toda/internal/infra"
	"toda/internal/types"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusRejected   Status = "REJECTED"
)

var AllStatuses = []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected}

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid booking status %q", in)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

func (s Status) Active() bool {
	return s.Valid() && !s.Terminal()
}

type Transition string

const (
	TransitionAccept   Transition = "accept"
	TransitionReject   Transition = "reject"
	TransitionStart    Transition = "start"
	TransitionComplete Transition = "complete"
	TransitionCancel   Transition = "cancel"
)

var AllTransitions = []Transition{TransitionAccept, TransitionReject, TransitionStart, TransitionComplete, TransitionCancel}

type edge struct {
	from []Status
	to   Status
}

// transitions is the booking state flow as code; any pair not listed is illegal.
var transitions = map[Transition]edge{
	TransitionAccept:   {from: []Status{StatusPending}, to: StatusAccepted},
	TransitionReject:   {from: []Status{StatusPending}, to: StatusRejected},
	TransitionStart:    {from: []Status{StatusAccepted}, to: StatusInProgress},
	TransitionComplete: {from: []Status{StatusAccepted, StatusInProgress}, to: StatusCompleted},
	TransitionCancel:   {from: []Status{StatusPending, StatusAccepted, StatusInProgress}, to: StatusCancelled},
}

// Next returns the status reached by applying t to from.
func Next(from Status, t Transition) (Status, error) {
	e, ok := transitions[t]
	if !ok {
		return "", &InvalidTransitionError{From: from, Attempted: t}
	}
	for _, s := range e.from {
		if s == from {
			return e.to, nil
		}
	}
	return "", &InvalidTransitionError{From: from, Attempted: t}
}

func CanTransition(from Status, t Transition) bool {
	_, err := Next(from, t)
	return err == nil
}

type Actor string

const (
	ActorRider    Actor = "rider"
	ActorDriver   Actor = "driver"
	ActorOperator Actor = "operator"
	ActorSystem   Actor = "system"
)

func (a Actor) Valid() bool {
	return a == ActorRider || a == ActorDriver || a == ActorOperator
}

type Booking struct {
	ID               types.ID    `json:"id"`
	RiderID          types.ID    `json:"rider_id"`
	RiderName        string      `json:"rider_name,omitempty"`
	RiderPhone       string      `json:"rider_phone,omitempty"`
	Pickup           types.Point `json:"pickup"`
	Dropoff          types.Point `json:"dropoff"`
	PickupAddress    string      `json:"pickup_address,omitempty"`
	DropoffAddress   string      `json:"dropoff_address,omitempty"`
	DistanceKm       float64     `json:"distance_km"`
	EstimatedFare    float64     `json:"estimated_fare"`
	ActualFare       *float64    `json:"actual_fare,omitempty"`
	Status           Status      `json:"status"`
	DriverID         types.ID    `json:"driver_id,omitempty"`
	TricycleID       types.ID    `json:"tricycle_id,omitempty"`
	VerificationCode string      `json:"verification_code"`
	CancelledBy      Actor       `json:"cancelled_by,omitempty"`
	Version          int         `json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	AcceptedAt       *time.Time  `json:"accepted_at,omitempty"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	CancelledAt      *time.Time  `json:"cancelled_at,omitempty"`
	RejectedAt       *time.Time  `json:"rejected_at,omitempty"`
}

// Fields are the columns a compare-and-set write may touch besides status.
// Empty values leave the stored column as is; DriverID and TricycleID are
// only ever written once.
type Fields struct {
	DriverID    types.ID
	TricycleID  types.ID
	ActualFare  *float64
	CancelledBy Actor
	At          time.Time
}

// apply copies the write onto b; used by the memory store and to build the
// post-transition value returned to callers.
func (b *Booking) apply(next Status, f Fields) {
	b.Status = next
	b.Version++
	if b.DriverID == "" && f.DriverID != "" {
		b.DriverID = f.DriverID
	}
	if b.TricycleID == "" && f.TricycleID != "" {
		b.TricycleID = f.TricycleID
	}
	if f.ActualFare != nil {
		v := *f.ActualFare
		b.ActualFare = &v
	}
	if f.CancelledBy != "" {
		b.CancelledBy = f.CancelledBy
	}
	at := f.At
	switch next {
	case StatusAccepted:
		b.AcceptedAt = &at
	case StatusInProgress:
		b.StartedAt = &at
	case StatusCompleted:
		b.CompletedAt = &at
	case StatusCancelled:
		b.CancelledAt = &at
	case StatusRejected:
		b.RejectedAt = &at
	}
}

// Event is one row of the booking audit trail.
type Event struct {
	BookingID  types.ID  `json:"booking_id"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	Actor      Actor     `json:"actor"`
	ActorID    types.ID  `json:"actor_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrNotFound          = errors.New("booking not found")
	ErrConflict          = errors.New("booking state conflict")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrBadRequest        = errors.New("bad request")
	ErrStoreUnavailable  = infra.ErrStoreUnavailable
)

// InvalidTransitionError reports an illegal (state, transition) pair. It is a
// programming or race error and must not be retried.
type InvalidTransitionError struct {
	From      Status
	Attempted Transition
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s a %s booking", ErrInvalidTransition, e.Attempted, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
