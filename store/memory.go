package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same per-key atomicity
// guarantees as the redis backend, provided by a single mutex. Expired
// entries are dropped lazily at read time.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	sets map[string]memorySet
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		sets: make(map[string]memorySet),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok || m.expired(entry) {
		delete(m.data, key)
		return "", ErrKeyNotFound
	}
	return entry.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

func (m *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok || m.expired(entry) {
		delete(m.data, key)
		return "", ErrKeyNotFound
	}
	delete(m.data, key)
	return entry.value, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.sets, key)
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok || m.expired(entry) {
		delete(m.data, key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) SAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok || m.setExpired(set) {
		set = memorySet{members: make(map[string]struct{})}
	}
	set.members[member] = struct{}{}
	if ttl > 0 {
		set.expiresAt = time.Now().Add(ttl)
	}
	m.sets[key] = set
	return nil
}

func (m *MemoryStore) SRem(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if set, ok := m.sets[key]; ok && !m.setExpired(set) {
		delete(set.members, member)
		if len(set.members) == 0 {
			delete(m.sets, key)
		}
	}
	return nil
}

func (m *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok || m.setExpired(set) {
		delete(m.sets, key)
		return nil, nil
	}

	members := make([]string, 0, len(set.members))
	for member := range set.members {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimSuffix(pattern, "*")
	now := time.Now()

	var keys []string
	for key, entry := range m.data {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)
}

func (m *MemoryStore) setExpired(set memorySet) bool {
	return !set.expiresAt.IsZero() && time.Now().After(set.expiresAt)
}
