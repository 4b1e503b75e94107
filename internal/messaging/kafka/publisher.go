package kafka

import (
	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// ChangePublisher отправляет события репозитория в Kafka.
type ChangePublisher struct {
	producer *Producer
	topic    string
}

var _ domain.ChangePublisher = (*ChangePublisher)(nil)

// NewChangePublisher возвращает publisher; пустой topic заменяется на TopicChanges.
func NewChangePublisher(producer *Producer, topic string) *ChangePublisher {
	if topic == "" {
		topic = TopicChanges
	}
	return &ChangePublisher{producer: producer, topic: topic}
}

func (p *ChangePublisher) Publish(event domain.ChangeEvent) error {
	msg := NewChangeMessage(event)
	return p.producer.Publish(p.topic, msg.Key(), string(msg.EventType), msg)
}

// Close закрывает producer.
func (p *ChangePublisher) Close() error {
	return p.producer.Close()
}
