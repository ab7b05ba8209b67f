package cache

import (
	"sync"
	"time"
)

// Store is an in-process key-value cache with per-entry TTL. It backs the
// login rate limiter, so entries are ephemeral on purpose: a restart resets
// all state. The clock is injectable so tests can drive expiry directly.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	done    chan struct{}
}

type entry struct {
	value     int64
	flag      bool
	expiresAt time.Time
}

// New creates a cache using the wall clock and starts the janitor goroutine.
func New() *Store {
	s := NewWithClock(time.Now)
	go s.janitor()
	return s
}

// NewWithClock creates a cache with a custom clock and no janitor.
// Expired entries are still invisible to reads; the janitor only reclaims memory.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     now,
		done:    make(chan struct{}),
	}
}

// GetCount returns the counter stored under key, or 0 if absent or expired.
func (s *Store) GetCount(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return 0
	}
	return e.value
}

// GetFlag returns the boolean stored under key, or false if absent or expired.
func (s *Store) GetFlag(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return false
	}
	return e.flag
}

// SetFlag stores a boolean under key with the given TTL.
func (s *Store) SetFlag(key string, value bool, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{flag: value, expiresAt: s.now().Add(ttl)}
}

// Increment atomically adds one to the counter under key, creating it at 1 if
// absent or expired, and refreshes its TTL. Returns the new value.
func (s *Store) Increment(key string, ttl time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		e = entry{}
	}
	e.value++
	e.expiresAt = s.now().Add(ttl)
	s.entries[key] = e
	return e.value
}

// Delete removes key from the cache.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Close stops the janitor goroutine.
func (s *Store) Close() {
	close(s.done)
}

func (s *Store) expired(e entry) bool {
	return !s.now().Before(e.expiresAt)
}

// janitor removes expired entries to prevent unbounded growth.
func (s *Store) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if s.expired(e) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
