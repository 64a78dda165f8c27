package kv

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value    string
	expireAt time.Time // zero means no expiry
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// MemoryStore is an in-process Store with per-key expiry. It backs tests
// and the -dry-run mode; expired keys are dropped lazily on access.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryItem
	// now is swappable so tests can step time past TTLs.
	now func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryItem),
		now:  time.Now,
	}
}

// SetClock replaces the store's time source. Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	if !ok || it.expired(s.now()) {
		delete(s.data, key)
		return "", false, nil
	}
	return it.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = s.item(value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.data[key]; ok && !it.expired(s.now()) {
		return false, nil
	}
	s.data[key] = s.item(value, ttl)
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if it.expired(s.now()) {
		delete(s.data, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) item(value string, ttl time.Duration) memoryItem {
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expireAt = s.now().Add(ttl)
	}
	return it
}
