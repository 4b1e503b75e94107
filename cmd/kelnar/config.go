package main

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/app"
)

const (
	envHTTPAddr            = "KELNAR_HTTP_ADDR"
	envGRPCAddr            = "KELNAR_GRPC_ADDR"
	envMetricsAddr         = "KELNAR_METRICS_ADDR"
	envStorageDriver       = "KELNAR_STORAGE_DRIVER"
	envSQLitePath          = "KELNAR_SQLITE_PATH"
	envPostgresDSN         = "KELNAR_POSTGRES_DSN"
	envPostgresAutoMigrate = "KELNAR_POSTGRES_AUTO_MIGRATE"
	envProductsKey         = "KELNAR_PRODUCTS_KEY"
	envShareBaseURL        = "KELNAR_SHARE_BASE_URL"
	envSeedDefaults        = "KELNAR_SEED_DEFAULTS"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaTopic          = "KELNAR_KAFKA_TOPIC"
	envLogLevel            = "KELNAR_LOG_LEVEL"
	envLogFormat           = "KELNAR_LOG_FORMAT"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования.
func setupLogger(lookup envLookup) {
	if format, _ := lookup(envLogFormat); strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if raw, ok := lookup(envLogLevel); ok {
		if parsed, err := log.ParseLevel(strings.TrimSpace(raw)); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не роняют запуск: остаётся значение по умолчанию
// и возвращается предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setBool := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, using default %t", key, err, *dst))
			return
		}
		*dst = parsed
	}

	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envGRPCAddr, &cfg.GRPCAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)
	setString(envSQLitePath, &cfg.SQLitePath)
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setString(envProductsKey, &cfg.ProductsKey)
	setString(envShareBaseURL, &cfg.ShareBaseURL)
	setString(envKafkaTopic, &cfg.KafkaTopic)
	setBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	setBool(envSeedDefaults, &cfg.SeedDefaults)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "yes", "on", "y":
		return true, nil
	case "0", "no", "off", "n":
		return false, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid bool %q", raw)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
