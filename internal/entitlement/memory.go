package entitlement

import (
	"context"
	"errors"
	"sync"
)

var errStoreDisabled = errors.New("store disabled")

// MemoryStore хранилище в памяти процесса. Используется в тестах и как
// локальный кэш клиента. SetFailing переводит его в режим отказа, имитируя
// переполненное или отключённое хранилище.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]string
	failing bool
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// SetFailing включает или выключает режим отказа.
func (s *MemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *MemoryStore) Read(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return "", false, errStoreDisabled
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Write(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDisabled
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDisabled
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}
