package memstore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var errQuotaExceeded = errors.New("storage quota exceeded")

// Store is an in-memory record store for tests and local tooling.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSaves makes every Save return a StorageError; tests use it to
	// simulate quota exhaustion.
	FailSaves bool
}

var _ core.RecordStore = (*Store)(nil)

func Open() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (s *Store) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves {
		return core.NewStorageError("save", key, errQuotaExceeded)
	}
	raw := make([]byte, len(value))
	copy(raw, value)
	s.data[key] = raw
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
