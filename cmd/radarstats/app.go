package main

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dylanvkmns/rqmProject/internal/adapter/intake"
	kafkaadapter "github.com/dylanvkmns/rqmProject/internal/adapter/kafka"
	"github.com/dylanvkmns/rqmProject/internal/adapter/store"
	"github.com/dylanvkmns/rqmProject/internal/config"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/observability"
	"github.com/dylanvkmns/rqmProject/internal/pipeline"
	"gorm.io/gorm"
)

// app holds the process-wide dependencies shared by subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	db      *gorm.DB
	store   *store.Store
	closers []func() error
}

// newApp loads configuration, opens the store and migrates its schema.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: observability.NewMetrics(),
	}

	a.db, err = store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	a.store, err = store.New(a.db, cfg.DBTable, storeMetrics(cfg.Schemas()), cfg.BatchSize, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// ingester wires the intake directory, the store and, when enabled, the
// Kafka notifier.
func (a *app) ingester() (*pipeline.Ingester, error) {
	src, err := intake.NewDir(a.cfg.InputDir, a.cfg.InputEncoding, a.logger)
	if err != nil {
		return nil, err
	}

	var notifier pipeline.Notifier
	if a.cfg.KafkaEnabled {
		n := kafkaadapter.NewNotifier(a.cfg, a.logger)
		a.closers = append(a.closers, n.Close)
		notifier = n
		a.logger.Info("ingest notifications enabled", "topic", a.cfg.KafkaTopic)
	} else {
		a.logger.Info("ingest notifications disabled")
	}

	return pipeline.New(src, a.store, notifier, a.cfg.Schemas(), a.cfg.InputFamily, a.logger, a.metrics), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
	a.closers = nil
}

// retentionWindow is the range covered by the retention horizon, open ended.
func (a *app) retentionWindow() domain.DateRange {
	if a.cfg.RetentionYears <= 0 {
		return domain.DateRange{}
	}
	return domain.DateRange{Start: domain.Today().AddDate(-a.cfg.RetentionYears, 0, 0)}
}

// storeMetrics is the union of metric columns across families, in first-seen order.
func storeMetrics(schemas []domain.Schema) []string {
	var out []string
	for _, s := range schemas {
		for _, m := range s.Metrics {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	return out
}
