// README: Fleet service; resolves which tricycle a driver is operating when they accept a booking.
package fleet

import (
	"context"
	"strings"
	"time"

	"toda/internal/types"
)

type Store interface {
	CreateDriver(ctx context.Context, d *Driver) error
	CreateTricycle(ctx context.Context, t *Tricycle) error
	GetDriver(ctx context.Context, id types.ID) (*Driver, error)
	GetTricycle(ctx context.Context, id types.ID) (*Tricycle, error)
	SetDriverTricycle(ctx context.Context, driverID, tricycleID types.ID) error
	SetDriverActive(ctx context.Context, driverID types.ID, active bool) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type RegisterDriverCommand struct {
	ID    types.ID
	Name  string
	Phone string
}

// RegisterDriver stores an active driver with no tricycle assigned. The id is
// the driver's auth uid.
func (s *Service) RegisterDriver(ctx context.Context, cmd RegisterDriverCommand) (*Driver, error) {
	name := strings.TrimSpace(cmd.Name)
	if cmd.ID == "" || name == "" {
		return nil, ErrBadRequest
	}
	d := &Driver{
		ID:        cmd.ID,
		Name:      name,
		Phone:     strings.TrimSpace(cmd.Phone),
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

type RegisterTricycleCommand struct {
	ID          types.ID
	BodyNumber  string
	PlateNumber string
}

func (s *Service) RegisterTricycle(ctx context.Context, cmd RegisterTricycleCommand) (*Tricycle, error) {
	body := strings.TrimSpace(cmd.BodyNumber)
	if cmd.ID == "" || body == "" {
		return nil, ErrBadRequest
	}
	t := &Tricycle{
		ID:          cmd.ID,
		BodyNumber:  body,
		PlateNumber: strings.ToUpper(strings.TrimSpace(cmd.PlateNumber)),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateTricycle(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignTricycle binds an existing tricycle to an existing driver.
func (s *Service) AssignTricycle(ctx context.Context, driverID, tricycleID types.ID) (*Driver, error) {
	if driverID == "" || tricycleID == "" {
		return nil, ErrBadRequest
	}
	if _, err := s.store.GetTricycle(ctx, tricycleID); err != nil {
		return nil, err
	}
	if err := s.store.SetDriverTricycle(ctx, driverID, tricycleID); err != nil {
		return nil, err
	}
	return s.store.GetDriver(ctx, driverID)
}

func (s *Service) SetActive(ctx context.Context, driverID types.ID, active bool) (*Driver, error) {
	if driverID == "" {
		return nil, ErrBadRequest
	}
	if err := s.store.SetDriverActive(ctx, driverID, active); err != nil {
		return nil, err
	}
	return s.store.GetDriver(ctx, driverID)
}

func (s *Service) Driver(ctx context.Context, id types.ID) (*Driver, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.GetDriver(ctx, id)
}

// ActiveDriver returns the driver only if they may take bookings.
func (s *Service) ActiveDriver(ctx context.Context, id types.ID) (*Driver, error) {
	d, err := s.Driver(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, ErrInactive
	}
	return d, nil
}
