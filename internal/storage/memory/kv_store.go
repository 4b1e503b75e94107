package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// kvStoreInMemory — KeyValueStore поверх map для локальной разработки и тестов.
type kvStoreInMemory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKeyValueStore возвращает пустое in-memory хранилище.
func NewKeyValueStore() domain.KeyValueStore {
	return &kvStoreInMemory{values: make(map[string]string)}
}

// NewKeyValueStoreWith возвращает хранилище, заполненное копией values.
func NewKeyValueStoreWith(values map[string]string) domain.KeyValueStore {
	store := &kvStoreInMemory{values: make(map[string]string, len(values))}
	for k, v := range values {
		store.values[k] = v
	}
	return store
}

func (s *kvStoreInMemory) GetString(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

func (s *kvStoreInMemory) PutString(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *kvStoreInMemory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *kvStoreInMemory) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]string)
	return nil
}

func (s *kvStoreInMemory) Ping(_ context.Context) error {
	return nil
}

var _ domain.KeyValueStore = (*kvStoreInMemory)(nil)
