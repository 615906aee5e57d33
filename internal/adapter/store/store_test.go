package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testMetrics = []string{"m1", "m2"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T, db *gorm.DB, metrics []string) *Store {
	t.Helper()
	s, err := New(db, "measurements", metrics, 2, discardLogger())
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fp(v float64) *float64 { return &v }

func rec(radar string, date time.Time, m1, m2 *float64) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		RadarID: radar,
		Date:    date,
		Metrics: map[string]*float64{"m1": m1, "m2": m2},
	}
}

func table(source string, records ...domain.NormalizedRecord) domain.NormalizedTable {
	return domain.NormalizedTable{Source: source, Schema: "daily", Records: records}
}

func TestNew_RejectsUnsafeNames(t *testing.T) {
	db := openTestDB(t)

	_, err := New(db, "measurements; drop", testMetrics, 10, discardLogger())
	require.Error(t, err)

	_, err = New(db, "measurements", []string{"Bad Column"}, 10, discardLogger())
	require.Error(t, err)
}

func TestAppend_RoundTrip(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	batchID, err := s.Append(ctx, table("a.csv",
		rec("S723E", day(2022, time.March, 4), fp(81.5), nil),
		rec("S723E", day(2022, time.March, 5), fp(80), fp(99.2)),
		rec("S723E", day(2022, time.March, 6), nil, nil),
	))
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)

	batches, err := s.Batches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, batchID, batches[0].ID)
	assert.Equal(t, 3, batches[0].Rows)
	assert.Equal(t, "daily", batches[0].Family)

	got, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "S723E", got[0].RadarID)
	assert.Equal(t, day(2022, time.March, 4), got[0].Date)
	require.NotNil(t, got[0].Metrics["m1"])
	assert.Equal(t, 81.5, *got[0].Metrics["m1"])
	assert.Nil(t, got[0].Metrics["m2"])
	assert.Nil(t, got[2].Metrics["m1"])
	assert.Less(t, got[0].ID, got[1].ID)
	assert.Less(t, got[1].ID, got[2].ID)
}

func TestAppend_CrossBatchDuplicatesAccepted(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	r := rec("S723E", day(2022, time.March, 4), fp(81.5), fp(99.2))
	_, err := s.Append(ctx, table("a.csv", r))
	require.NoError(t, err)
	_, err = s.Append(ctx, table("b.csv", r))
	require.NoError(t, err)

	got, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	batches, err := s.Batches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestAppend_RollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	newTestStore(t, db, []string{"m1"})

	// m2 was never migrated, so the insert fails after the ledger row is written.
	broken, err := New(db, "measurements", testMetrics, 2, discardLogger())
	require.NoError(t, err)

	_, err = broken.Append(ctx, table("a.csv",
		rec("S723E", day(2022, time.March, 4), fp(1), fp(2)),
	))
	require.Error(t, err)

	var appendErr *domain.AppendFailedError
	require.True(t, errors.As(err, &appendErr))
	assert.Equal(t, "a.csv", appendErr.Source)

	var rows, ledger int64
	require.NoError(t, db.Table("measurements").Count(&rows).Error)
	require.NoError(t, db.Model(&Batch{}).Count(&ledger).Error)
	assert.Zero(t, rows)
	assert.Zero(t, ledger)
}

func TestAppend_EmptyTableWritesLedgerOnly(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	tbl := table("empty.csv")
	tbl.Report.Duplicates = 2
	_, err := s.Append(ctx, tbl)
	require.NoError(t, err)

	batches, err := s.Batches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "empty.csv", batches[0].Source)
	assert.Equal(t, 2, batches[0].Duplicates)
	assert.Zero(t, batches[0].Rows)
}

func TestAppend_LedgerTimeFollowsDomainClock(t *testing.T) {
	at := time.Date(2024, time.March, 7, 6, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })

	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	_, err := s.Append(ctx, table("a.csv", rec("S723E", day(2024, time.March, 6), fp(1), nil)))
	require.NoError(t, err)

	batches, err := s.Batches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, at.Equal(batches[0].IngestedAt), "got %s", batches[0].IngestedAt)
}

func TestQuery_FiltersAndOrders(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	_, err := s.Append(ctx, table("a.csv",
		rec("S723E", day(2022, time.March, 6), fp(3), nil),
		rec("S723E", day(2022, time.March, 4), fp(1), nil),
		rec("OTHER", day(2022, time.March, 5), fp(9), nil),
	))
	require.NoError(t, err)
	_, err = s.Append(ctx, table("b.csv",
		rec("S723E", day(2022, time.March, 4), fp(2), nil),
		rec("S723E", day(2022, time.March, 8), fp(4), nil),
	))
	require.NoError(t, err)

	got, err := s.Query(ctx, "S723E", domain.DateRange{
		Start: day(2022, time.March, 4),
		End:   day(2022, time.March, 6),
	})
	require.NoError(t, err)

	var values []float64
	for _, r := range got {
		assert.Equal(t, "S723E", r.RadarID)
		values = append(values, *r.Metrics["m1"])
	}
	// Equal dates keep insertion order.
	assert.Equal(t, []float64{1, 2, 3}, values)
}

func TestQuery_UnknownRadarIsEmpty(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)

	got, err := s.Query(context.Background(), "NOPE", domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRadarsAndRevision(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	ctx := context.Background()

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Zero(t, rev)

	_, err = s.Append(ctx, table("a.csv",
		rec("S723E", day(2022, time.March, 4), fp(1), nil),
		rec("A100", day(2022, time.March, 4), fp(1), nil),
		rec("S723E", day(2022, time.March, 5), fp(1), nil),
	))
	require.NoError(t, err)

	radars, err := s.Radars(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A100", "S723E"}, radars)

	next, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Greater(t, next, rev)
}

func TestEnsureSchema_AddsMissingMetricColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := newTestStore(t, db, []string{"m1"})
	_, err := old.Append(ctx, domain.NormalizedTable{
		Source: "old.csv",
		Records: []domain.NormalizedRecord{{
			RadarID: "S723E",
			Date:    day(2022, time.March, 4),
			Metrics: map[string]*float64{"m1": fp(5)},
		}},
	})
	require.NoError(t, err)

	s := newTestStore(t, db, testMetrics)
	// Running it again is a no-op.
	require.NoError(t, s.EnsureSchema(ctx))

	got, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, *got[0].Metrics["m1"])
	assert.Nil(t, got[0].Metrics["m2"])
}

func TestCheckReadiness(t *testing.T) {
	s := newTestStore(t, openTestDB(t), testMetrics)
	assert.NoError(t, s.CheckReadiness(context.Background()))
}
