package store

import (
	"context"
	"sync"

	"github.com/kiw9761/GAIN/core/model"
)

// MemoryStore keeps JSON-encoded checkpoints in process memory. Stored
// values are copies, so later changes to a saved checkpoint are not seen.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// Load implements gain.ModelStore.
func (s *MemoryStore) Load(_ context.Context, key string) (*model.Checkpoint, error) {
	if err := validateKey("MemoryStore.Load", key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound("MemoryStore.Load", key)
	}
	var cp model.Checkpoint
	if err := cp.FromJSON(data); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Save implements gain.ModelStore.
func (s *MemoryStore) Save(_ context.Context, key string, cp *model.Checkpoint) error {
	if err := validateKey("MemoryStore.Save", key); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.ToJSON()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
	return nil
}

// Keys returns the stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys
}
