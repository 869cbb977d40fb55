package chat

import (
	"context"
	"sync"
	"time"

	"toda/internal/types"
)

type MemoryService struct {
	mu       sync.Mutex
	channels map[types.ID]Channel
	now      func() time.Time
}

func NewMemoryService() *MemoryService {
	return &MemoryService{channels: make(map[types.ID]Channel), now: time.Now}
}

func (m *MemoryService) EnsureChannel(_ context.Context, bookingID, riderID, driverID types.ID) (types.ID, error) {
	if err := validate(bookingID, riderID, driverID); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.channels[bookingID]; ok {
		return reconcile(existing, riderID, driverID)
	}
	m.channels[bookingID] = newChannel(bookingID, riderID, driverID, m.now())
	return bookingID, nil
}

// Channel returns the stored channel for a booking.
func (m *MemoryService) Channel(bookingID types.ID) (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[bookingID]
	return c, ok
}
