package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type windowEntry struct {
	member string
	at     time.Time
}

// MemoryStore is an in-process Store implementation. It honors TTLs against
// the injectable clock, which lets tests advance time without sleeping.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	windows map[string][]windowEntry

	// Now is the clock used for TTL checks and window stamps.
	Now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		windows: make(map[string][]windowEntry),
		Now:     time.Now,
	}
}

// get returns the live entry for key, pruning it when expired.
// Caller must hold mu.
func (m *MemoryStore) get(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && m.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = m.Now().Add(expiration)
	}
	m.entries[key] = memoryEntry{value: toString(value), expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, data, expiration)
}

func (m *MemoryStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
		delete(m.windows, key)
	}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.get(key)
	return ok, nil
}

func (m *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	if e, ok := m.get(key); ok {
		count, _ = strconv.ParseInt(e.value, 10, 64)
	}
	count++
	e := m.entries[key]
	e.value = strconv.FormatInt(count, 10)
	m.entries[key] = e
	return count, nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.get(key); ok {
		return false, nil
	}
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = m.Now().Add(expiration)
	}
	m.entries[key] = memoryEntry{value: toString(value), expiresAt: expiresAt}
	return true, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.get(key); ok {
		e.expiresAt = m.Now().Add(expiration)
		m.entries[key] = e
	}
	return nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(key)
	if !ok {
		return -2 * time.Second, nil
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return e.expiresAt.Sub(m.Now()), nil
}

func (m *MemoryStore) CountWindow(_ context.Context, key string, window time.Duration, member string, increment bool) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	cutoff := now.Add(-window)

	kept := m.windows[key][:0]
	for _, e := range m.windows[key] {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if increment {
		kept = append(kept, windowEntry{member: member, at: now})
	}
	m.windows[key] = kept

	var oldest int64
	if len(kept) > 0 {
		oldest = kept[0].at.UnixNano()
	}
	return int64(len(kept)), oldest, nil
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}
