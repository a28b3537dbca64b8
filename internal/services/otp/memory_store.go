package otp

import (
	"context"
	"sync"
	"time"

	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
)

type sessionKey struct {
	structureID string
	method      models.PaymentMethod
}

// MemoryStore is a process-local Store. Its janitor only drops sessions that
// expired more than grace ago, so Verify can still answer "expired".
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]models.OTPSession
	grace    time.Duration
	now      func() time.Time
}

func NewMemoryStore(grace time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[sessionKey]models.OTPSession),
		grace:    grace,
		now:      time.Now,
	}
}

func (m *MemoryStore) Put(ctx context.Context, session *models.OTPSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey{session.StructureID, session.Method}] = *session
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, structureID string, method models.PaymentMethod, fn func(*models.OTPSession) Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{structureID, method}
	current, ok := m.sessions[key]
	if !ok {
		return ErrNoSession
	}

	switch fn(&current) {
	case Save:
		m.sessions[key] = current
	case Delete:
		delete(m.sessions, key)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, structureID string, method models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{structureID, method})
	return nil
}

// Sweep removes sessions expired for longer than the grace period.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.grace)
	removed := 0
	for key, s := range m.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// Len is used by tests and the readiness probe.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	logger.Info("OTP janitor started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("OTP janitor stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug("Expired OTP sessions swept", "count", n)
			}
		}
	}
}
