// Package store persists normalized measurements in a SQL table through GORM.
//
// The measurement table has fixed columns (id, radar_name, date, batch_id)
// and one nullable float column per configured metric. Rows are only ever
// appended; every append is recorded in the ingest_batches ledger inside the
// same transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // database/sql driver behind the postgres dialector
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. driver is "sqlite" (dsn is a
// file path or ":memory:") or "postgres" (dsn is a lib/pq connection string).
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres":
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single connection serializes writers and keeps :memory: databases
		// shared across calls.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" {
		return dsn
	}
	return "file:" + dsn + "?_busy_timeout=5000&_journal_mode=WAL"
}

// measurementRow maps the fixed columns of the measurement table. Metric
// columns are managed separately because their set is configuration.
type measurementRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RadarName string `gorm:"column:radar_name;size:64;not null;index:idx_radar_date,priority:1"`
	Date      string `gorm:"column:date;size:10;not null;index:idx_radar_date,priority:2"`
	BatchID   string `gorm:"column:batch_id;size:36;not null"`
}

// Batch is the ledger entry written alongside each append.
type Batch struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Source     string    `gorm:"column:source;size:255;not null" json:"source"`
	Family     string    `gorm:"column:family;size:32;not null" json:"family"`
	Rows       int       `gorm:"column:row_count;not null" json:"rows"`
	Dropped    int       `gorm:"column:dropped;not null" json:"dropped"`
	Duplicates int       `gorm:"column:duplicates;not null" json:"duplicates"`
	IngestedAt time.Time `gorm:"column:ingested_at;not null" json:"ingested_at"`
}

// TableName pins the ledger table name.
func (Batch) TableName() string { return "ingest_batches" }

// Store is the explicit handle for one measurement table.
type Store struct {
	db        *gorm.DB
	table     string
	metrics   []string
	batchSize int
	logger    *slog.Logger
}

// New creates a Store over table with the given metric columns. batchSize
// bounds the rows per INSERT statement.
func New(db *gorm.DB, table string, metrics []string, batchSize int, logger *slog.Logger) (*Store, error) {
	if !domain.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, m := range metrics {
		if !domain.ValidTableName(m) {
			return nil, fmt.Errorf("invalid metric column %q", m)
		}
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Store{
		db:        db,
		table:     table,
		metrics:   slices.Clone(metrics),
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// EnsureSchema creates the measurement and ledger tables if needed and adds
// any configured metric column the table is missing. Existing columns and
// rows are never altered.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Table(s.table).AutoMigrate(&measurementRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	if err := db.AutoMigrate(&Batch{}); err != nil {
		return fmt.Errorf("migrate ingest_batches: %w", err)
	}

	floatType := "REAL"
	if s.db.Dialector.Name() == "postgres" {
		floatType = "DOUBLE PRECISION"
	}
	for _, m := range s.metrics {
		if db.Migrator().HasColumn(s.table, m) {
			continue
		}
		err := db.Exec("ALTER TABLE ? ADD COLUMN ? "+floatType,
			clause.Table{Name: s.table}, clause.Column{Name: m}).Error
		if err != nil {
			return fmt.Errorf("add metric column %s: %w", m, err)
		}
		s.logger.Info("metric column added", "table", s.table, "column", m)
	}
	return nil
}

// Append writes all records of one normalized file and its ledger entry in a
// single transaction. Either every row is committed or none is; a failure is
// returned as *domain.AppendFailedError. The new batch id is returned.
func (s *Store) Append(ctx context.Context, table domain.NormalizedTable) (string, error) {
	batch := Batch{
		ID:         uuid.NewString(),
		Source:     table.Source,
		Family:     table.Schema,
		Rows:       len(table.Records),
		Dropped:    len(table.Report.Dropped) + table.Report.OutOfWindow,
		Duplicates: table.Report.Duplicates,
		IngestedAt: domain.Now().UTC(),
	}

	rows := make([]map[string]any, 0, len(table.Records))
	for _, rec := range table.Records {
		rows = append(rows, s.toRow(rec, batch.ID))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("record batch: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Table(s.table).CreateInBatches(rows, s.batchSize).Error; err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", &domain.AppendFailedError{Source: table.Source, Err: err}
	}
	return batch.ID, nil
}

func (s *Store) toRow(rec domain.NormalizedRecord, batchID string) map[string]any {
	row := make(map[string]any, len(s.metrics)+3)
	row["radar_name"] = rec.RadarID
	row["date"] = rec.Date.Format(domain.ISODate)
	row["batch_id"] = batchID
	for _, m := range s.metrics {
		if v := rec.Metrics[m]; v != nil {
			row[m] = *v
		} else {
			row[m] = nil
		}
	}
	return row
}

// All returns every stored row in insertion order.
func (s *Store) All(ctx context.Context) ([]domain.NormalizedRecord, error) {
	return s.Query(ctx, "", domain.DateRange{})
}

// Query returns the rows for radar (all radars when empty) whose date falls
// in the inclusive range, ordered by date then insertion id. The result is
// read with a single SELECT.
func (s *Store) Query(ctx context.Context, radar string, r domain.DateRange) ([]domain.NormalizedRecord, error) {
	columns := append([]string{"id", "radar_name", "date"}, s.metrics...)
	q := s.db.WithContext(ctx).Table(s.table).Select(columns)
	if radar != "" {
		q = q.Where("radar_name = ?", radar)
	}
	if !r.Start.IsZero() {
		q = q.Where("date >= ?", r.Start.Format(domain.ISODate))
	}
	if !r.End.IsZero() {
		q = q.Where("date <= ?", r.End.Format(domain.ISODate))
	}
	if radar == "" && r.Start.IsZero() && r.End.IsZero() {
		q = q.Order("id")
	} else {
		q = q.Order("date").Order("id")
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.NormalizedRecord
	values := make([]sql.NullFloat64, len(s.metrics))
	for rows.Next() {
		var (
			id      int64
			radarID string
			date    string
		)
		dest := []any{&id, &radarID, &date}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		d, err := time.Parse(domain.ISODate, date)
		if err != nil {
			return nil, fmt.Errorf("row %d: stored date %q: %w", id, date, err)
		}
		rec := domain.NormalizedRecord{
			ID:      id,
			RadarID: radarID,
			Date:    d,
			Metrics: make(map[string]*float64, len(s.metrics)),
		}
		for i, m := range s.metrics {
			if values[i].Valid {
				v := values[i].Float64
				rec.Metrics[m] = &v
			} else {
				rec.Metrics[m] = nil
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}

// Radars returns the distinct radar ids present in the store, sorted.
func (s *Store) Radars(ctx context.Context) ([]string, error) {
	var radars []string
	err := s.db.WithContext(ctx).Table(s.table).
		Distinct("radar_name").Order("radar_name").
		Pluck("radar_name", &radars).Error
	if err != nil {
		return nil, fmt.Errorf("list radars: %w", err)
	}
	return radars, nil
}

// Revision returns the highest insertion id. It changes whenever rows are
// appended, which makes it usable as a cache key.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.WithContext(ctx).Table(s.table).
		Select("COALESCE(MAX(id), 0)").Scan(&rev).Error
	if err != nil {
		return 0, fmt.Errorf("store revision: %w", err)
	}
	return rev, nil
}

// Batches returns the most recent ledger entries, newest first.
func (s *Store) Batches(ctx context.Context, limit int) ([]Batch, error) {
	var out []Batch
	q := s.db.WithContext(ctx).Order("ingested_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return out, nil
}

// CheckReadiness pings the underlying connection pool.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
