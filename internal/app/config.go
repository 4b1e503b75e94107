package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/messaging/kafka"
)

// StorageDriver выбирает реализацию KeyValueStore.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	SQLitePath          string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// ProductsKey — ключ меню в хранилище.
	ProductsKey string
	// SeedDefaults: при пустом или повреждённом меню подставлять стартовое.
	SeedDefaults bool
	// ShareBaseURL — адрес клиента, к которому приклеивается #menu/import.
	ShareBaseURL string

	// KafkaBrokers пуст — события изменений никуда не публикуются.
	KafkaBrokers []string
	KafkaTopic   string
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		SQLitePath:          "kelnar.db",
		PostgresAutoMigrate: true,
		ProductsKey:         domain.ProductsKey,
		SeedDefaults:        true,
		ShareBaseURL:        "http://localhost:8080/",
		KafkaTopic:          kafka.TopicChanges,
	}
}

// Validate проверяет согласованность настроек до запуска серверов.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if strings.TrimSpace(c.ProductsKey) == "" {
		errs = append(errs, errors.New("products key is required"))
	}
	if c.ProductsKey == domain.OrdersKey {
		errs = append(errs, fmt.Errorf("products key must differ from %q", domain.OrdersKey))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite path is required for sqlite storage"))
		}
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}
