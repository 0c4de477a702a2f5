package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	resp    *Response
	expires time.Time
}

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

// Lookup implements Store.
func (m *Memory) Lookup(_ context.Context, key string) (Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || e.resp == nil {
		return Response{}, false, nil
	}
	return *e.resp, true, nil
}

// Reserve implements Store.
func (m *Memory) Reserve(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return ErrInFlight
	}
	m.entries[key] = memoryEntry{expires: m.now().Add(ttl)}
	return nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, key string, resp Response, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp.Body = append([]byte(nil), resp.Body...)
	m.entries[key] = memoryEntry{resp: &resp, expires: m.now().Add(ttl)}
	return nil
}

// Release implements Store.
func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
