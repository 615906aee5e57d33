package domain

import (
	"cmp"
	"slices"
)

// SeriesOptions tunes BuildSeries.
type SeriesOptions struct {
	// DetectOutliers flags values outside the IQR fences of the window.
	DetectOutliers bool
}

// BuildSeries turns stored records into one labeled series per metric of
// group, for a single radar and an inclusive date range.
//
// Rows dated today or later are never shown. Rows are ordered by date, ties
// keep store insertion order. Values are converted to display units via
// [MetricGroup.Divisor]. The input slice is not modified.
func BuildSeries(records []NormalizedRecord, radarID string, group MetricGroup, window DateRange, opts SeriesOptions) View {
	cutoff := Today()

	rows := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.RadarID != radarID || !window.Contains(r.Date) || !r.Date.Before(cutoff) {
			continue
		}
		rows = append(rows, r)
	}
	slices.SortStableFunc(rows, func(a, b NormalizedRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	view := View{
		RadarID: radarID,
		Group:   group.Name,
		Series:  make([]Series, 0, len(group.Metrics)),
	}
	divisor := group.Divisor()

	for _, metric := range group.Metrics {
		s := Series{Metric: metric, Points: make([]Point, 0, len(rows))}

		var values []float64
		var valuePoints []int
		for _, r := range rows {
			p := Point{Date: r.Date}
			if v := r.Metrics[metric]; v != nil {
				scaled := *v / divisor
				p.Value = &scaled
				values = append(values, scaled)
				valuePoints = append(valuePoints, len(s.Points))
			}
			s.Points = append(s.Points, p)
		}

		if opts.DetectOutliers {
			if fences, idx, ok := DetectOutliers(values); ok {
				s.Fences = &fences
				s.Outliers = make([]Point, 0, len(idx))
				for _, i := range idx {
					s.Outliers = append(s.Outliers, s.Points[valuePoints[i]])
				}
			}
		}

		view.Series = append(view.Series, s)
	}

	return view
}
