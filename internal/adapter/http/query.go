package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/spf13/cast"
)

const maxBatchLimit = 500

type viewQuery struct {
	window domain.DateRange
	opts   domain.SeriesOptions
	echo   rangeJSON
}

// parseQuery reads start, end (YYYY-MM-DD, inclusive) and outliers. It
// writes a 400 and returns false on invalid input.
func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (viewQuery, bool) {
	values := r.URL.Query()
	var q viewQuery

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"start", &q.window.Start},
		{"end", &q.window.End},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(domain.ISODate, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", p.name))
			return viewQuery{}, false
		}
		*p.dst = t
	}
	q.echo = rangeJSON{Start: values.Get("start"), End: values.Get("end")}

	if raw := values.Get("outliers"); raw != "" {
		on, err := cast.ToBoolE(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "outliers must be a boolean")
			return viewQuery{}, false
		}
		q.opts.DetectOutliers = on
	}
	return q, true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 50, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxBatchLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxBatchLimit)
	}
	return n, nil
}
