package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// TopicChanges — топик по умолчанию для изменений меню и заказов.
const TopicChanges = "kelnar.changes"

// menuKey — ключ сообщений о меню: все они попадают в одну партицию.
const menuKey = "menu"

// ChangeMessage — тело сообщения об изменении данных.
type ChangeMessage struct {
	EventType domain.ChangeKind `json:"event_type"`
	EntityID  string            `json:"entity_id,omitempty"`
	Order     *domain.Order     `json:"order,omitempty"`
	MenuSize  *int              `json:"menu_size,omitempty"`
	Total     string            `json:"total,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewChangeMessage превращает событие репозитория в сообщение Kafka.
func NewChangeMessage(event domain.ChangeEvent) ChangeMessage {
	msg := ChangeMessage{
		EventType: event.Kind,
		EntityID:  event.EntityID,
		Timestamp: event.OccurredAt,
	}
	switch event.Kind {
	case domain.ChangeMenuUpdated:
		size := event.MenuSize
		msg.MenuSize = &size
	case domain.ChangeOrderUpdated:
		if event.Order != nil {
			order := event.Order.Clone()
			msg.Order = &order
			msg.Total = domain.FormatCurrency(order.Total())
		}
	}
	return msg
}

// Key возвращает ключ партиционирования: события одного заказа идут по порядку.
func (m ChangeMessage) Key() string {
	if m.EventType == domain.ChangeMenuUpdated || m.EntityID == "" {
		return menuKey
	}
	return m.EntityID
}
