// README: In-memory rider profile store for tests and the memory store driver.
package trust

import (
	"context"
	"errors"
	"sync"
	"time"

	"toda/internal/types"
)

type profile struct {
	trust    RiderTrust
	verified bool
}

type MemoryStore struct {
	mu       sync.Mutex
	policy   ScorePolicy
	security SecurityConfig
	profiles map[types.ID]*profile
}

func NewMemoryStore(policy ScorePolicy, security SecurityConfig) *MemoryStore {
	return &MemoryStore{policy: policy, security: security, profiles: make(map[types.ID]*profile)}
}

// Put stores t as a phone-verified profile, replacing any existing one.
func (m *MemoryStore) Put(t RiderTrust) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[t.RiderID] = &profile{trust: t, verified: true}
}

// PutUnverified stores a profile whose phone number has not been verified.
func (m *MemoryStore) PutUnverified(riderID types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[riderID] = &profile{trust: RiderTrust{RiderID: riderID, TrustScore: InitialScore}}
}

func (m *MemoryStore) Register(_ context.Context, riderID types.ID, phoneVerified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[riderID]; ok {
		p.verified = p.verified || phoneVerified
		return nil
	}
	m.profiles[riderID] = &profile{
		trust:    RiderTrust{RiderID: riderID, TrustScore: InitialScore},
		verified: phoneVerified,
	}
	return nil
}

func (m *MemoryStore) GetTrust(_ context.Context, riderID types.ID) (*RiderTrust, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[riderID]
	if !ok || !p.verified {
		return nil, nil
	}
	cp := p.trust
	return &cp, nil
}

func (m *MemoryStore) ApplyBookingOutcome(_ context.Context, riderID types.ID, outcome BookingOutcome, at time.Time) error {
	if outcome != BookingCompleted && outcome != BookingCancelled {
		return errors.New("unknown booking outcome " + string(outcome))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[riderID]
	if !ok {
		return ErrProfileNotFound
	}
	p.trust = m.policy.Apply(p.trust, outcome, at)
	return nil
}

func (m *MemoryStore) SetBlocked(_ context.Context, riderID types.ID, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[riderID]
	if !ok {
		return ErrProfileNotFound
	}
	p.trust.IsBlocked = blocked
	return nil
}

func (m *MemoryStore) SecurityConfig(_ context.Context) (SecurityConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.security, nil
}

func (m *MemoryStore) SetSecurityConfig(cfg SecurityConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.security = cfg
}
