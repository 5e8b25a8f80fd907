package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"tramite-portal/internal/common/logger"
)

// FileStore keeps one JSON document per scope under a state directory.
// Meant for air-gapped single-node deployments; not safe across processes.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	logger logger.Logger
}

func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		dir:    dir,
		logger: log.WithFields(map[string]interface{}{"store": "file"}),
	}, nil
}

func (s *FileStore) path(scope string) string {
	return filepath.Join(s.dir, scope+".json")
}

func (s *FileStore) readScope(scope string) map[string]json.RawMessage {
	entries := make(map[string]json.RawMessage)
	raw, err := os.ReadFile(s.path(scope))
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.WithError(err).Warn("corrupted scope file, resetting", map[string]interface{}{
			"scope": scope,
		})
		return make(map[string]json.RawMessage)
	}
	return entries
}

func (s *FileStore) writeScope(scope string, entries map[string]json.RawMessage) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(scope), encoded, 0o644)
}

func (s *FileStore) Save(ctx context.Context, scope, key string, value interface{}) error {
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
	entries := s.readScope(scope)
	entries[key] = encoded
	return s.writeScope(scope, entries)
}

func (s *FileStore) Load(ctx context.Context, scope, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	entries := s.readScope(scope)
	s.mu.Unlock()

	encoded, ok := entries[key]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(encoded, dest); err != nil {
		s.logger.WithError(err).Warn("corrupted entry, treating as absent", map[string]interface{}{
			"scope": scope,
			"key":   key,
		})
		return false, nil
	}
	return true, nil
}

func (s *FileStore) Clear(ctx context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		err := os.Remove(s.path(scope))
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	entries := s.readScope(scope)
	for _, key := range keys {
		delete(entries, key)
	}
	return s.writeScope(scope, entries)
}
