package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a mutex-guarded in-process Store with TTL semantics
// matching RedisStore. It backs tests and serves as the degraded
// fallback when Redis is unreachable at startup. It provides no
// cross-process exclusion, so locks taken on it only serialize within
// one process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// get returns the live entry for key, pruning it if expired.
// Caller must hold mu.
func (s *MemoryStore) get(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(s.now()) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// Get returns the value for key and whether it was present
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.get(key)
	if !ok {
		return "", false
	}
	return entry.value, true
}

// Set stores value under key with the given TTL
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return true
}

// SetNX stores value only if key is absent
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return false
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return true
}

// Delete removes key
func (s *MemoryStore) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key)
	delete(s.entries, key)
	return ok
}

// Exists reports whether key is present
func (s *MemoryStore) Exists(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key)
	return ok
}

// Increment atomically increments the counter at key
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if entry, ok := s.get(key); ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, false
		}
		current = parsed
		current++
		// Preserve the existing expiry on subsequent increments
		s.entries[key] = memoryEntry{value: strconv.FormatInt(current, 10), expiresAt: entry.expiresAt}
		return current, true
	}

	current = 1
	s.entries[key] = memoryEntry{value: "1", expiresAt: s.expiry(ttl)}
	return current, true
}

// CompareAndDelete removes key only if its current value equals expected
func (s *MemoryStore) CompareAndDelete(ctx context.Context, key, expected string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.get(key)
	if !ok || entry.value != expected {
		return false
	}
	delete(s.entries, key)
	return true
}

// SetClock overrides the store's time source. Tests use this to expire
// entries without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
