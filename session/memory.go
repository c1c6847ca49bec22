package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps session pairs in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	access  map[[32]byte]string
	refresh map[[32]byte]string
	// lapsed holds access hashes dropped by DeleteAccess. They stay in
	// access so Revoke can still reach the pair.
	lapsed  map[[32]byte]struct{}
	byUser  map[string]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		access:  make(map[[32]byte]string),
		refresh: make(map[[32]byte]string),
		lapsed:  make(map[[32]byte]struct{}),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[r.ID] = r
	m.access[r.AccessHash] = r.ID
	m.refresh[r.RefreshHash] = r.ID

	ids, ok := m.byUser[r.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[r.UserID] = ids
	}
	ids[r.ID] = struct{}{}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, accessHash [32]byte) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.access[accessHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	if _, gone := m.lapsed[accessHash]; gone {
		return Record{}, ErrNotFound
	}
	return m.records[id], nil
}

func (m *MemoryStore) DeleteAccess(_ context.Context, accessHash [32]byte) error {
	m.mu.Lock()
	if _, ok := m.access[accessHash]; ok {
		m.lapsed[accessHash] = struct{}{}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, accessHash [32]byte) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.access[accessHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	r := m.records[id]
	m.removeLocked(r)
	return r, nil
}

func (m *MemoryStore) ConsumeRefresh(_ context.Context, refreshHash [32]byte, now time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.refresh[refreshHash]
	if !ok {
		return Record{}, ErrRefreshNotFound
	}
	r := m.records[id]
	if now.After(r.RefreshExpiresAt) {
		return Record{}, ErrRefreshExpired
	}
	m.removeLocked(r)
	return r, nil
}

func (m *MemoryStore) ListForUser(_ context.Context, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	out := make([]Record, 0, len(ids))
	for id := range ids {
		out = append(out, m.records[id])
	}
	sortByCreated(out)
	return out, nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	n := len(ids)
	for id := range ids {
		m.removeLocked(m.records[id])
	}
	delete(m.byUser, userID)
	return n, nil
}

// Len reports the number of stored pairs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func sortByCreated(rs []Record) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.Before(rs[j].CreatedAt) })
}

func (m *MemoryStore) removeLocked(r Record) {
	delete(m.access, r.AccessHash)
	delete(m.lapsed, r.AccessHash)
	delete(m.refresh, r.RefreshHash)
	delete(m.records, r.ID)
	if ids, ok := m.byUser[r.UserID]; ok {
		delete(ids, r.ID)
		if len(ids) == 0 {
			delete(m.byUser, r.UserID)
		}
	}
}
