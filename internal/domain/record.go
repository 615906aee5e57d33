package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ISODate is the canonical date layout used in the store and on the wire.
const ISODate = "2006-01-02"

// RawRecord is one data line split on the field delimiter, before any coercion.
type RawRecord struct {
	Line   int // 1-based line number in the source file
	Fields []string
}

// RawTable is a measurement file as read from the intake directory.
type RawTable struct {
	Source  string // file name, for logs and the batch ledger
	Header  []string
	Records []RawRecord
}

// NormalizedRecord is the unit of storage: one radar, one day, one value per metric.
type NormalizedRecord struct {
	ID      int64 // store insertion order, zero until appended
	RadarID string
	Date    time.Time
	Metrics map[string]*float64 // nil value means NULL
}

// dedupKey renders every column of the record in a fixed order so that
// byte-identical rows after normalization share a key.
func (r NormalizedRecord) dedupKey(metrics []string) string {
	var b strings.Builder
	b.WriteString(r.RadarID)
	b.WriteByte(0x1f)
	b.WriteString(r.Date.Format(ISODate))
	for _, name := range metrics {
		b.WriteByte(0x1f)
		v := r.Metrics[name]
		if v == nil {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
	}
	return b.String()
}

// RowDrop records a row skipped during normalization.
type RowDrop struct {
	Line int
	Err  error
}

// NormalizeReport summarizes what normalization did to a file.
type NormalizeReport struct {
	RowsRead    int
	Dropped     []RowDrop
	Duplicates  int
	OutOfWindow int
}

// NormalizedTable is the canonical in-memory form of one raw file.
type NormalizedTable struct {
	Source  string
	Schema  string
	Records []NormalizedRecord
	Report  NormalizeReport
}

// DateRange is an inclusive date interval. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// Empty reports whether no date can satisfy the range.
func (r DateRange) Empty() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start)
}

// Point is one (date, value) sample of a series. A nil value is a gap.
type Point struct {
	Date  time.Time
	Value *float64
}

// MarshalJSON renders the date in ISO form so charting clients need no parsing.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}{
		Date:  p.Date.Format(ISODate),
		Value: p.Value,
	})
}

// Fences are the IQR outlier bounds of a series window.
type Fences struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Series is one labeled metric line, ready for plotting.
type Series struct {
	Metric   string  `json:"metric"`
	Points   []Point `json:"points"`
	Outliers []Point `json:"outliers,omitempty"`
	Fences   *Fences `json:"fences,omitempty"`
}

// View is the set of series for one radar and one metric group.
type View struct {
	RadarID string   `json:"radar"`
	Group   string   `json:"group"`
	Series  []Series `json:"series"`
}
