package session

import (
	"context"
	"encoding/json"
	"sync"

	"tramite-portal/internal/common/logger"
)

// MemoryStore is the in-process store used in tests and single-node dev.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	logger logger.Logger
}

func NewMemoryStore(log logger.Logger) *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]map[string][]byte),
		logger: log.WithFields(map[string]interface{}{"store": "memory"}),
	}
}

func (s *MemoryStore) Save(ctx context.Context, scope, key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).Error("failed to serialize entry", map[string]interface{}{
			"scope": scope,
			"key":   key,
		})
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[scope] == nil {
		s.data[scope] = make(map[string][]byte)
	}
	s.data[scope][key] = encoded
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, scope, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	encoded, ok := s.data[scope][key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(encoded, dest); err != nil {
		// Corrupted entries report absent so the caller re-creates the step.
		s.logger.WithError(err).Warn("corrupted entry, treating as absent", map[string]interface{}{
			"scope": scope,
			"key":   key,
		})
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Clear(ctx context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.data[scope]
	if entries == nil {
		return nil
	}
	if len(keys) == 0 {
		delete(s.data, scope)
		return nil
	}
	for _, key := range keys {
		delete(entries, key)
	}
	return nil
}
