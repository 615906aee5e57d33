package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBroker = "broker1:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "input", cfg.InputDir)
	assert.Equal(t, "daily", cfg.InputFamily)
	assert.Equal(t, "utf-8", cfg.InputEncoding)
	assert.Equal(t, 5, cfg.RetentionYears)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "rdmData.db", cfg.DatabaseURL)
	assert.Equal(t, "measurements", cfg.DBTable)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "@every 5m", cfg.IngestSchedule)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 256, cfg.ViewCacheSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "radar-ingest-events", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INPUT_DIR", "/var/spool/radar")
	t.Setenv("INPUT_FAMILY", "otr")
	t.Setenv("INPUT_ENCODING", "windows-1252")
	t.Setenv("RETENTION_YEARS", "2")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://radar@localhost/radar?sslmode=disable")
	t.Setenv("DB_TABLE", "tbl_gegevens")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("INGEST_SCHEDULE", "0 6 * * *")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("VIEW_CACHE_SIZE", "32")
	t.Setenv("KAFKA_BROKERS", testBroker+",broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/spool/radar", cfg.InputDir)
	assert.Equal(t, "otr", cfg.InputFamily)
	assert.Equal(t, "windows-1252", cfg.InputEncoding)
	assert.Equal(t, 2, cfg.RetentionYears)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "tbl_gegevens", cfg.DBTable)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "0 6 * * *", cfg.IngestSchedule)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 32, cfg.ViewCacheSize)
	assert.Equal(t, []string{testBroker, "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled)

	for _, s := range cfg.Schemas() {
		assert.Equal(t, 2, s.RetentionYears)
	}
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, substr string
	}{
		{"RETENTION_YEARS", "-1", "RETENTION_YEARS"},
		{"RETENTION_YEARS", "five", "RETENTION_YEARS"},
		{"VIEW_CACHE_SIZE", "-1", "VIEW_CACHE_SIZE"},
		{"VIEW_CACHE_SIZE", "lots", "VIEW_CACHE_SIZE"},
		{"DB_DRIVER", "mysql", "DB_DRIVER"},
		{"DB_TABLE", "measurements; DROP TABLE x", "DB_TABLE"},
		{"INPUT_FAMILY", "weekly", "INPUT_FAMILY"},
		{"INPUT_ENCODING", "klingon", "INPUT_ENCODING"},
		{"INGEST_SCHEDULE", "every now and then", "INGEST_SCHEDULE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestLoad_ZeroViewCacheSizeDisablesCache(t *testing.T) {
	t.Setenv("VIEW_CACHE_SIZE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ViewCacheSize)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{testBroker}, cfg.KafkaBrokers)
}
