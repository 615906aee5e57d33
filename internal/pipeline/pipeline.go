package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/observability"
)

// Source lists, reads and removes delivered files.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, path string) (domain.RawTable, error)
	Remove(ctx context.Context, path string) error
}

// Appender commits one normalized file atomically and returns its batch id.
type Appender interface {
	Append(ctx context.Context, table domain.NormalizedTable) (string, error)
}

// Notifier announces committed batches to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, event domain.IngestEvent) error
}

// Ingester moves files from the intake directory into the store:
// read, normalize, append in one transaction, then delete the source.
type Ingester struct {
	source   Source
	store    Appender
	notifier Notifier
	schemas  []domain.Schema
	fallback string
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex // one writer at a time
	ready atomic.Bool
}

// New creates an Ingester. notifier may be nil. Files whose name matches no
// family pattern are normalized with the family named fallback.
func New(src Source, st Appender, notifier Notifier, schemas []domain.Schema, fallback string, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	return &Ingester{
		source:   src,
		store:    st,
		notifier: notifier,
		schemas:  schemas,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one ingestion run has completed.
func (i *Ingester) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// RunOnce ingests every file currently in the intake directory. A failing
// file does not stop the run; all failures are returned joined.
func (i *Ingester) RunOnce(ctx context.Context) (int, error) {
	files, err := i.source.List(ctx)
	if err != nil {
		return 0, err
	}
	return i.IngestFiles(ctx, files)
}

// IngestFiles ingests the given files in order and returns the total number
// of rows appended.
func (i *Ingester) IngestFiles(ctx context.Context, paths []string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.metrics.IngestRunning.Set(1)
	defer i.metrics.IngestRunning.Set(0)
	start := time.Now()

	var (
		total int
		errs  []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := i.ingest(ctx, path)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	i.metrics.IngestRunDuration.Observe(time.Since(start).Seconds())
	i.ready.Store(true)
	i.logger.Info("ingestion run finished", "files", len(paths), "rows", total, "failed", len(errs))
	return total, errors.Join(errs...)
}

// Ingest processes one file and returns the number of rows appended. A file
// that no longer exists is a no-op. The source is deleted only after the
// append has committed; on any earlier failure it is left in place for the
// next run.
func (i *Ingester) Ingest(ctx context.Context, path string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ingest(ctx, path)
}

func (i *Ingester) ingest(ctx context.Context, path string) (int, error) {
	start := time.Now()

	raw, err := i.source.Read(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		i.logger.Debug("file vanished before ingestion", "file", path)
		return 0, nil
	}
	if err != nil {
		i.fail(path, "read", err)
		return 0, err
	}

	schema, err := domain.ResolveSchema(i.schemas, raw.Source, i.fallback)
	if err != nil {
		i.fail(path, "schema", err)
		return 0, err
	}

	table, err := domain.Normalize(raw, schema)
	if err != nil {
		i.fail(path, "malformed", err)
		return 0, err
	}
	i.recordDrops(path, table.Report)

	batchID, err := i.store.Append(ctx, table)
	if err != nil {
		i.fail(path, "append", err)
		return 0, err
	}
	rows := len(table.Records)
	i.metrics.RowsAppended.Add(float64(rows))

	if err := i.source.Remove(ctx, path); err != nil {
		// The rows are committed; a re-run would append them again.
		i.fail(path, "remove", err)
		return rows, fmt.Errorf("batch %s committed but source not removed: %w", batchID, err)
	}

	i.metrics.FilesIngested.Inc()
	i.metrics.FileDuration.Observe(time.Since(start).Seconds())
	i.logger.Info("file ingested",
		"file", path,
		"family", schema.Name,
		"batch_id", batchID,
		"rows", rows,
		"dropped", len(table.Report.Dropped),
		"duplicates", table.Report.Duplicates,
		"out_of_window", table.Report.OutOfWindow,
	)

	if i.notifier != nil {
		event := domain.NewIngestEvent(batchID, table, domain.Now().UTC())
		if err := i.notifier.Notify(ctx, event); err != nil {
			i.logger.Warn("ingest notification failed", "batch_id", batchID, "error", err)
		}
	}
	return rows, nil
}

func (i *Ingester) recordDrops(path string, report domain.NormalizeReport) {
	for _, d := range report.Dropped {
		reason := dropReason(d.Err)
		i.metrics.RowsDropped.WithLabelValues(reason).Inc()
		i.logger.Warn("row dropped", "file", path, "line", d.Line, "reason", reason, "error", d.Err)
	}
	if report.Duplicates > 0 {
		i.metrics.RowsDropped.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	}
	if report.OutOfWindow > 0 {
		i.metrics.RowsDropped.WithLabelValues("window").Add(float64(report.OutOfWindow))
	}
}

func (i *Ingester) fail(path, reason string, err error) {
	i.metrics.FilesFailed.WithLabelValues(reason).Inc()
	i.logger.Error("file ingestion failed", "file", path, "reason", reason, "error", err)
}

func dropReason(err error) string {
	var dateErr *domain.DateParseError
	switch {
	case errors.As(err, &dateErr):
		return "date"
	case errors.Is(err, domain.ErrMissingRadar):
		return "radar"
	default:
		return "other"
	}
}
