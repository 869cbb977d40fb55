// README: In-memory booking store with compare-and-set writes and fan-out subscriptions.
package booking

import (
	"context"
	"sort"
	"sync"

	"toda/internal/types"
)

const subscriberBuffer = 64

type MemoryStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	subs     map[chan Booking]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[types.ID]*Booking),
		subs:     make(map[chan Booking]struct{}),
	}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[b.ID]; exists {
		return ErrConflict
	}
	cp := *b
	m.bookings[b.ID] = &cp
	m.broadcast(cp)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) CompareAndSetStatus(_ context.Context, id types.ID, expected, next Status, f Fields) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status != expected {
		return false, nil
	}
	b.apply(next, f)
	m.broadcast(*b)
	return true, nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(), nil
}

func (m *MemoryStore) SubscribeActive(ctx context.Context) (<-chan Booking, error) {
	m.mu.Lock()
	snapshot := m.activeLocked()
	ch := make(chan Booking, len(snapshot)+subscriberBuffer)
	for _, b := range snapshot {
		ch <- b
	}
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (m *MemoryStore) activeLocked() []Booking {
	out := make([]Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		if b.Status.Active() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// broadcast must be called with m.mu held. Slow subscribers drop updates
// rather than block writers; display reads only need eventual visibility.
func (m *MemoryStore) broadcast(b Booking) {
	for ch := range m.subs {
		select {
		case ch <- b:
		default:
		}
	}
}
