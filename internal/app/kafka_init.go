package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/messaging/kafka"
)

// initKafkaPublisher подключает публикацию изменений, если заданы брокеры.
// Недоступная Kafka не мешает запуску: приложение работает без событий.
func initKafkaPublisher(cfg Config, logger *log.Entry) *kafka.ChangePublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("kafka недоступна, продолжаем без публикации изменений")
		return nil
	}

	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
	}).Info("kafka producer initialized")
	return kafka.NewChangePublisher(producer, cfg.KafkaTopic)
}
