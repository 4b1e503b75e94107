package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/kelnar/internal/app"
)

func mapLookup(values map[string]string) envLookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestReadConfigFromEnv_Defaults(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(nil))
	require.Empty(t, warnings)
	require.Equal(t, app.DefaultConfig(), cfg)
}

func TestReadConfigFromEnv_Overrides(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(map[string]string{
		envHTTPAddr:            "127.0.0.1:8081",
		envStorageDriver:       " SQLite ",
		envSQLitePath:          "/var/lib/kelnar/data.db",
		envPostgresAutoMigrate: "off",
		envProductsKey:         "menu",
		envSeedDefaults:        "no",
		envShareBaseURL:        "https://kelnar.example/",
		envKafkaBrokers:        "kafka-1:9092, kafka-2:9092,,",
		envKafkaTopic:          "restaurant.changes",
	}))

	require.Empty(t, warnings)
	require.Equal(t, "127.0.0.1:8081", cfg.HTTPAddr)
	require.Equal(t, app.StorageDriverSQLite, cfg.StorageDriver)
	require.Equal(t, "/var/lib/kelnar/data.db", cfg.SQLitePath)
	require.False(t, cfg.PostgresAutoMigrate)
	require.Equal(t, "menu", cfg.ProductsKey)
	require.False(t, cfg.SeedDefaults)
	require.Equal(t, "https://kelnar.example/", cfg.ShareBaseURL)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "restaurant.changes", cfg.KafkaTopic)
	require.NoError(t, cfg.Validate())
}

func TestReadConfigFromEnv_InvalidBoolKeepsDefault(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(map[string]string{
		envPostgresAutoMigrate: "sometimes",
		envSeedDefaults:        "maybe",
	}))
	require.Len(t, warnings, 2)
	require.True(t, cfg.PostgresAutoMigrate)
	require.True(t, cfg.SeedDefaults)
}

func TestParseBool(t *testing.T) {
	for raw, want := range map[string]bool{" YES ": true, "on": true, "true": true, "off": false, "0": false, "FALSE": false} {
		got, err := parseBool(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := parseBool("sometimes")
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	})

	setupLogger(mapLookup(map[string]string{envLogLevel: "debug", envLogFormat: "JSON"}))
	require.Equal(t, log.DebugLevel, log.GetLevel())
	_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
	require.True(t, isJSON)

	setupLogger(mapLookup(map[string]string{envLogLevel: "loud"}))
	require.Equal(t, log.InfoLevel, log.GetLevel())
}
