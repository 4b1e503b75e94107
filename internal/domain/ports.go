package domain

import (
	"context"
	"time"
)

// Ключи, под которыми коллекции лежат в KeyValueStore.
const (
	ProductsKey = "products"
	OrdersKey   = "orders"
)

// KeyValueStore описывает платформенное хранилище строк по строковому ключу.
// Каждая реализация соответствует одной цели развёртывания.
type KeyValueStore interface {
	// GetString возвращает значение и признак наличия ключа.
	GetString(ctx context.Context, key string) (string, bool, error)
	// PutString целиком перезаписывает значение ключа.
	PutString(ctx context.Context, key, value string) error
	// Remove удаляет ключ; отсутствие ключа ошибкой не считается.
	Remove(ctx context.Context, key string) error
	// Clear удаляет все ключи.
	Clear(ctx context.Context) error
	// Ping проверяет доступность хранилища для health checks.
	Ping(ctx context.Context) error
}

// ChangeKind задаёт тип изменения коллекции.
type ChangeKind string

const (
	ChangeMenuUpdated  ChangeKind = "menu.updated"
	ChangeOrderUpdated ChangeKind = "order.upserted"
	ChangeOrderRemoved ChangeKind = "order.removed"
)

// ChangeEvent описывает уже сохранённое изменение состояния.
type ChangeEvent struct {
	Kind       ChangeKind
	EntityID   string
	Order      *Order
	MenuSize   int
	OccurredAt time.Time
}

// ChangePublisher уведомляет внешних подписчиков об изменениях.
type ChangePublisher interface {
	// Publish не должен блокировать надолго; ошибки логируются вызывающей стороной.
	Publish(event ChangeEvent) error
}
