// Package view serves time-series views of stored measurements, with a
// small LRU cache keyed on the store revision.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/observability"
)

// Reader is the read side of the measurement store.
type Reader interface {
	Query(ctx context.Context, radar string, r domain.DateRange) ([]domain.NormalizedRecord, error)
	Radars(ctx context.Context) ([]string, error)
	Revision(ctx context.Context) (int64, error)
}

// Service builds views for the API and the CLI.
type Service struct {
	store   Reader
	groups  []domain.MetricGroup
	cache   *lruCache[domain.View]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a view service. cacheSize <= 0 disables caching.
func NewService(r Reader, groups []domain.MetricGroup, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   r,
		groups:  groups,
		cache:   newLRUCache[domain.View](cacheSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Groups returns the configured metric groups in display order.
func (s *Service) Groups() []domain.MetricGroup {
	return slices.Clone(s.groups)
}

// Radars lists the radars with stored data.
func (s *Service) Radars(ctx context.Context) ([]string, error) {
	return s.store.Radars(ctx)
}

// Series returns the view of one metric group for one radar. An unknown
// group yields an error wrapping domain.ErrUnknownGroup; an unknown radar or
// an empty range yields a view with empty series. Returned views may be
// shared with other callers and must not be modified.
func (s *Service) Series(ctx context.Context, radar, group string, r domain.DateRange, opts domain.SeriesOptions) (domain.View, error) {
	g, err := domain.LookupGroup(s.groups, group)
	if err != nil {
		return domain.View{}, err
	}
	s.metrics.ViewRequests.WithLabelValues(g.Name).Inc()

	if r.Empty() {
		return domain.BuildSeries(nil, radar, g, r, opts), nil
	}

	rev, err := s.store.Revision(ctx)
	if err != nil {
		return domain.View{}, err
	}
	key := cacheKey(radar, g.Name, r, opts, rev)
	if v, ok := s.cache.get(key); ok {
		s.metrics.ViewCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	s.metrics.ViewCache.WithLabelValues("miss").Inc()

	records, err := s.store.Query(ctx, radar, r)
	if err != nil {
		return domain.View{}, err
	}
	v := domain.BuildSeries(records, radar, g, r, opts)
	for _, series := range v.Series {
		s.metrics.OutliersFlagged.Add(float64(len(series.Outliers)))
	}
	s.cache.put(key, v)
	s.logger.Debug("view built", "radar", radar, "group", g.Name, "rows", len(records))
	return v, nil
}

// Dashboard returns one view per configured group, in display order.
func (s *Service) Dashboard(ctx context.Context, radar string, r domain.DateRange, opts domain.SeriesOptions) ([]domain.View, error) {
	views := make([]domain.View, 0, len(s.groups))
	for _, g := range s.groups {
		v, err := s.Series(ctx, radar, g.Name, r, opts)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Finding is one series with at least one flagged value.
type Finding struct {
	Radar    string         `json:"radar"`
	Group    string         `json:"group"`
	Metric   string         `json:"metric"`
	Fences   domain.Fences  `json:"fences"`
	Outliers []domain.Point `json:"outliers"`
}

// Audit runs outlier detection over every radar and group in the range and
// returns the series that have flagged values. Nothing is modified.
func (s *Service) Audit(ctx context.Context, r domain.DateRange) ([]Finding, error) {
	records, err := s.store.Query(ctx, "", r)
	if err != nil {
		return nil, err
	}

	var radars []string
	for _, rec := range records {
		radars = append(radars, rec.RadarID)
	}
	slices.Sort(radars)
	radars = slices.Compact(radars)

	var findings []Finding
	opts := domain.SeriesOptions{DetectOutliers: true}
	for _, radar := range radars {
		for _, g := range s.groups {
			v := domain.BuildSeries(records, radar, g, r, opts)
			for _, series := range v.Series {
				if len(series.Outliers) == 0 {
					continue
				}
				findings = append(findings, Finding{
					Radar:    radar,
					Group:    g.Name,
					Metric:   series.Metric,
					Fences:   *series.Fences,
					Outliers: series.Outliers,
				})
			}
		}
	}
	return findings, nil
}

func cacheKey(radar, group string, r domain.DateRange, opts domain.SeriesOptions, rev int64) string {
	// Today is part of the key because the unelapsed-date cutoff moves at midnight.
	return fmt.Sprintf("%s|%s|%s|%s|%t|%d|%s",
		radar, group, isoOrEmpty(r.Start), isoOrEmpty(r.End), opts.DetectOutliers, rev,
		domain.Today().Format(domain.ISODate))
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.ISODate)
}
