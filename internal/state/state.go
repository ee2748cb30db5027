package state

import (
	"context"
	"sort"
	"sync"
)

// Set is the persisted record of issues already queued, keyed by
// "{project_id}:{issue_id}". Add persists before returning.
type Set interface {
	Contains(key string) bool
	Add(ctx context.Context, key string) error
	Keys() []string
}

// MemorySet is a Set that keeps keys in memory only
type MemorySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewMemorySet creates a MemorySet holding keys
func NewMemorySet(keys ...string) *MemorySet {
	s := &MemorySet{keys: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		s.keys[key] = struct{}{}
	}
	return s
}

// Contains reports whether key is present
func (s *MemorySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Add inserts key
func (s *MemorySet) Add(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
	return nil
}

// Keys returns the keys in sorted order
func (s *MemorySet) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.keys)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
