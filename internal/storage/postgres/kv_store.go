package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// KeyValueStore хранит строки по ключу в таблице kv_store.
type KeyValueStore struct {
	store *Store
}

var _ domain.KeyValueStore = (*KeyValueStore)(nil)

// NewKeyValueStore возвращает хранилище поверх открытого подключения.
// Схема должна быть создана заранее (EnsureSchema или cmd/migrate).
func NewKeyValueStore(store *Store) *KeyValueStore {
	return &KeyValueStore{store: store}
}

func (s *KeyValueStore) GetString(ctx context.Context, key string) (string, bool, error) {
	if err := s.ready(); err != nil {
		return "", false, err
	}
	var value string
	err := s.store.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KeyValueStore) PutString(ctx context.Context, key, value string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *KeyValueStore) Remove(ctx context.Context, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *KeyValueStore) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM kv_store`); err != nil {
		return fmt.Errorf("clear kv_store: %w", err)
	}
	return nil
}

func (s *KeyValueStore) Ping(ctx context.Context) error {
	if s == nil {
		return domain.ErrStoreClosed
	}
	return s.store.Ping(ctx)
}

func (s *KeyValueStore) ready() error {
	if s == nil || s.store == nil || s.store.db == nil {
		return domain.ErrStoreClosed
	}
	return nil
}
