package cache

import (
	"sync"
	"time"
)

type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Store is a map with per-entry expiry. Expired entries are evicted on read.
type Store[K comparable, V any] struct {
	name    string
	mutex   sync.Mutex
	entries map[K]Entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// name labels the lookup metrics
func NewStore[K comparable, V any](name string, ttl time.Duration) *Store[K, V] {
	return &Store[K, V]{
		name:    name,
		entries: make(map[K]Entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source, for tests
func (s *Store[K, V]) SetClock(now func() time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.now = now
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		recordLookup(s.name, lookupMiss)
		var zero V
		return zero, false
	}
	if !s.now().Before(entry.ExpiresAt) {
		delete(s.entries, key)
		recordLookup(s.name, lookupExpired)
		var zero V
		return zero, false
	}
	recordLookup(s.name, lookupHit)
	return entry.Value, true
}

func (s *Store[K, V]) Set(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries[key] = Entry[V]{
		Value:     value,
		ExpiresAt: s.now().Add(s.ttl),
	}
}

// Len counts entries including the expired ones not yet evicted
func (s *Store[K, V]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// Prune drops every expired entry and returns how many were dropped
func (s *Store[K, V]) Prune() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := s.now()
	pruned := 0
	for key, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, key)
			pruned++
		}
	}
	return pruned
}

type BoardKey struct {
	BoardId   string
	Kind      string
	Recommend bool
}

type RelatedKey struct {
	BoardId   string
	Kind      string
	Recommend bool
	TargetId  int64
	Limit     int
}

type DocumentKey struct {
	BoardId    string
	Kind       string
	DocumentId string
}
