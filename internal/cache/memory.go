package cache

import (
	"encoding/json"
	"sync"
)

// memoryStore keeps entries in a map. Values still round-trip through
// JSON so callers observe the same serialization behavior as the
// durable backends. Used by tests and as a last-resort fallback.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemory() Store {
	return &memoryStore{entries: make(map[string][]byte)}
}

func (s *memoryStore) Get(key string, out interface{}) (bool, error) {
	s.mu.Lock()
	raw, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
