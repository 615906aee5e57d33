package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/encoding/htmlindex"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputDir       string
	InputFamily    string
	InputEncoding  string
	RetentionYears int

	DBDriver    string
	DatabaseURL string
	DBTable     string
	BatchSize   int

	IngestSchedule  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ViewCacheSize   int

	// Ingest notifications, feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is honored but never overrides the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	retentionYears, err := parseNonNegativeInt("RETENTION_YEARS", 5)
	if err != nil {
		return nil, err
	}
	viewCacheSize, err := parseNonNegativeInt("VIEW_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		InputDir:       sharedcfg.EnvOrDefault("INPUT_DIR", "input"),
		InputFamily:    sharedcfg.EnvOrDefault("INPUT_FAMILY", "daily"),
		InputEncoding:  sharedcfg.EnvOrDefault("INPUT_ENCODING", "utf-8"),
		RetentionYears: retentionYears,

		DBDriver:    sharedcfg.EnvOrDefault("DB_DRIVER", "sqlite"),
		DatabaseURL: sharedcfg.EnvOrDefault("DATABASE_URL", "rdmData.db"),
		DBTable:     sharedcfg.EnvOrDefault("DB_TABLE", "measurements"),
		BatchSize:   batchSize,

		IngestSchedule:  sharedcfg.EnvOrDefault("INGEST_SCHEDULE", "@every 5m"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		ViewCacheSize:   viewCacheSize,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "radar-ingest-events"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite or postgres", cfg.DBDriver)
	}
	if !domain.ValidTableName(cfg.DBTable) {
		return nil, fmt.Errorf("invalid DB_TABLE %q", cfg.DBTable)
	}
	if _, err := domain.ResolveSchema(cfg.Schemas(), "", cfg.InputFamily); err != nil {
		return nil, fmt.Errorf("invalid INPUT_FAMILY: %w", err)
	}
	if _, err := htmlindex.Get(cfg.InputEncoding); err != nil {
		return nil, fmt.Errorf("invalid INPUT_ENCODING %q: %w", cfg.InputEncoding, err)
	}
	if _, err := cron.ParseStandard(cfg.IngestSchedule); err != nil {
		return nil, fmt.Errorf("invalid INGEST_SCHEDULE: %w", err)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// Schemas returns the input families configured with the retention horizon.
func (c *Config) Schemas() []domain.Schema {
	return domain.Families(c.RetentionYears)
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
