package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/kelnar/internal/health"
	"github.com/vladislavdragonenkov/kelnar/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kelnar/internal/metrics"
	"github.com/vladislavdragonenkov/kelnar/internal/repository"
	"github.com/vladislavdragonenkov/kelnar/internal/service/catalog"
	"github.com/vladislavdragonenkov/kelnar/internal/service/ordering"
	"github.com/vladislavdragonenkov/kelnar/internal/service/outbox"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/memory"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/postgres"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/sqlite"
)

const outboxBacklogThreshold = 128

// runtimeDependencies — всё, что собирается до запуска серверов.
type runtimeDependencies struct {
	store     domain.KeyValueStore
	repo      *repository.DataRepository
	catalog   *catalog.Service
	ordering  *ordering.Service
	publisher *kafka.ChangePublisher
	relay     *outbox.Relay
	checkers  map[string]healthcheck.Checker
	closers   []func() error
}

// Close освобождает ресурсы в обратном порядке создания.
func (d *runtimeDependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := &runtimeDependencies{checkers: make(map[string]healthcheck.Checker)}

	store, closeStore, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.store = store
	deps.closers = append(deps.closers, closeStore)
	deps.checkers["storage"] = healthcheck.NewPingChecker("storage", store)

	storeMetrics := metrics.NewStoreMetrics()
	opts := []repository.Option{
		repository.WithMetrics(storeMetrics),
		repository.WithProductsKey(cfg.ProductsKey),
	}
	if !cfg.SeedDefaults {
		opts = append(opts, repository.WithSeedProducts(nil))
	}

	if publisher := initKafkaPublisher(cfg, logger); publisher != nil {
		deps.publisher = publisher
		deps.closers = append(deps.closers, publisher.Close)

		// Relay закрывается раньше producer и успевает сбросить очередь.
		deps.relay = outbox.NewRelay(publisher, outbox.WithLogger(logger.WithField("component", "outbox-relay")))
		deps.relay.Start()
		deps.closers = append(deps.closers, deps.relay.Close)
		opts = append(opts, repository.WithPublisher(deps.relay))
		deps.checkers["kafka"] = healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
			if pending := deps.relay.Pending(); pending > outboxBacklogThreshold {
				return fmt.Errorf("outbox backlog: %d events", pending)
			}
			return nil
		})
	}

	deps.repo = repository.New(store, logger.WithField("layer", "repository"), opts...)
	deps.repo.LoadData(ctx)

	deps.catalog = catalog.NewService(deps.repo, cfg.ShareBaseURL, storeMetrics, logger.WithField("layer", "catalog"))
	deps.ordering = ordering.NewService(deps.repo, logger.WithField("layer", "ordering"))

	logger.WithFields(log.Fields{
		"storage":  cfg.StorageDriver,
		"products": len(deps.repo.Products()),
		"orders":   len(deps.repo.Orders()),
	}).Info("данные загружены")
	return deps, nil
}

// initStorage открывает хранилище выбранного типа и возвращает функцию закрытия.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (domain.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Warn("данные хранятся в памяти и пропадут при перезапуске")
		return memory.NewKeyValueStore(), noop, nil

	case StorageDriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("sqlite storage initialized")
		return store, store.Close, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, nil, errors.New("postgres dsn is required")
		}
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return nil, nil, fmt.Errorf("migrate postgres schema: %w", err)
			}
		}
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres storage initialized")
		return postgres.NewKeyValueStore(pg), pg.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
