package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps counters in a process-local map.
type MemoryBackend struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{attempts: make(map[string]Attempt)}
}

// Increment implements Backend. The ttl hint is ignored; stale entries are
// dropped by the Limiter's lazy purge.
func (m *MemoryBackend) Increment(_ context.Context, key string, at time.Time, _ time.Duration) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attempts[key]
	a.Count++
	a.Last = at
	m.attempts[key] = a
	return a, nil
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[key]
	return a, ok, nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.attempts, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of tracked keys.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}
