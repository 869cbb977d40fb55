// README: In-process fleet store for tests and the memory driver.
package fleet

import (
	"context"
	"sync"

	"toda/internal/types"
)

type MemoryStore struct {
	mu        sync.RWMutex
	drivers   map[types.ID]Driver
	tricycles map[types.ID]Tricycle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drivers:   make(map[types.ID]Driver),
		tricycles: make(map[types.ID]Tricycle),
	}
}

func (m *MemoryStore) CreateDriver(_ context.Context, d *Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; ok {
		return ErrDuplicate
	}
	m.drivers[d.ID] = *d
	return nil
}

func (m *MemoryStore) CreateTricycle(_ context.Context, t *Tricycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tricycles[t.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.tricycles {
		if existing.BodyNumber == t.BodyNumber {
			return ErrDuplicate
		}
	}
	m.tricycles[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetDriver(_ context.Context, id types.ID) (*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) GetTricycle(_ context.Context, id types.ID) (*Tricycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tricycles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) SetDriverTricycle(_ context.Context, driverID, tricycleID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	d.TricycleID = tricycleID
	m.drivers[driverID] = d
	return nil
}

func (m *MemoryStore) SetDriverActive(_ context.Context, driverID types.ID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	d.Active = active
	m.drivers[driverID] = d
	return nil
}
