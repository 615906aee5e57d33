package domain

import (
	"fmt"
	"path"
	"regexp"
	"slices"
)

// identifierRe restricts metric and table names to identifiers that are safe in SQL.
var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// reservedColumns are the fixed store columns a metric may not shadow.
var reservedColumns = []string{"id", "radar_name", "date", "batch_id"}

// Schema describes one input family: how its files are laid out and which
// metric columns they carry, in file order after Date and Radar Name.
type Schema struct {
	Name              string
	DateLayout        string // Go layout, e.g. "02/01/2006"
	TrailingDropCount int    // trailing columns discarded before validation
	FooterRows        int    // trailing rows discarded before validation
	FilePattern       string // base-name glob selecting this family, empty matches nothing
	RetentionYears    int    // rows older than this are dropped; <= 0 disables the horizon
	Metrics           []string
}

// ColumnCount is the number of data columns a row must have once trailing
// columns are dropped.
func (s Schema) ColumnCount() int {
	return 2 + len(s.Metrics)
}

// Validate checks that the schema can drive normalization and storage.
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema: name is required")
	}
	if s.DateLayout == "" {
		return fmt.Errorf("schema %s: date layout is required", s.Name)
	}
	if s.TrailingDropCount < 0 || s.FooterRows < 0 {
		return fmt.Errorf("schema %s: drop counts must not be negative", s.Name)
	}
	if len(s.Metrics) == 0 {
		return fmt.Errorf("schema %s: at least one metric is required", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Metrics))
	for _, m := range s.Metrics {
		if !identifierRe.MatchString(m) {
			return fmt.Errorf("schema %s: invalid metric name %q", s.Name, m)
		}
		if slices.Contains(reservedColumns, m) {
			return fmt.Errorf("schema %s: metric name %q is reserved", s.Name, m)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("schema %s: duplicate metric %q", s.Name, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// ValidTableName reports whether name can be used as the measurement table.
func ValidTableName(name string) bool {
	return identifierRe.MatchString(name)
}

// Matches reports whether a file base name belongs to this family.
func (s Schema) Matches(name string) bool {
	if s.FilePattern == "" {
		return false
	}
	ok, err := path.Match(s.FilePattern, name)
	return err == nil && ok
}

// GroupKind classifies a metric group for unit handling.
type GroupKind string

const (
	KindProbability GroupKind = "probability"
	KindError       GroupKind = "error"
	KindBias        GroupKind = "bias"
)

// MetricGroup is a named set of related metrics plotted together.
type MetricGroup struct {
	Name    string    `json:"name"`
	Kind    GroupKind `json:"kind"`
	Metrics []string  `json:"metrics"`
}

// Divisor converts stored values to display units: probability metrics are
// stored in percentage points and shown as fractions. Bias is never scaled.
func (g MetricGroup) Divisor() float64 {
	if g.Kind == KindProbability {
		return 100
	}
	return 1
}

// DefaultMetricGroups returns the deployment's metric groups in display order.
func DefaultMetricGroups() []MetricGroup {
	return []MetricGroup{
		{Name: "probability", Kind: KindProbability, Metrics: []string{"pdssr", "pdpsr", "pda", "pdc"}},
		{Name: "error", Kind: KindError, Metrics: []string{"iva", "ivc", "fc", "ft", "mt"}},
		{Name: "bias", Kind: KindBias, Metrics: []string{"rng", "azim"}},
	}
}

// DefaultMetrics flattens the default groups into file column order.
func DefaultMetrics() []string {
	var out []string
	for _, g := range DefaultMetricGroups() {
		out = append(out, g.Metrics...)
	}
	return out
}

// LookupGroup finds a group by name.
func LookupGroup(groups []MetricGroup, name string) (MetricGroup, error) {
	for _, g := range groups {
		if g.Name == name {
			return g, nil
		}
	}
	return MetricGroup{}, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
}

// Families returns the known input families with the given retention horizon.
//
//	daily: DD/MM/YYYY dates, optional time of day, one trailing column.
//	otr:   DD-MM-YY dates, one trailing column, one footer row, files named OTR*.
func Families(retentionYears int) []Schema {
	return []Schema{
		{
			Name:              "daily",
			DateLayout:        "02/01/2006",
			TrailingDropCount: 1,
			RetentionYears:    retentionYears,
			Metrics:           DefaultMetrics(),
		},
		{
			Name:              "otr",
			DateLayout:        "02-01-06",
			TrailingDropCount: 1,
			FooterRows:        1,
			FilePattern:       "OTR*",
			RetentionYears:    retentionYears,
			Metrics:           DefaultMetrics(),
		},
	}
}

// ResolveSchema picks the family for a file: the first family whose pattern
// matches the base name, otherwise the family named fallback.
func ResolveSchema(families []Schema, name, fallback string) (Schema, error) {
	for _, s := range families {
		if s.Matches(name) {
			return s, nil
		}
	}
	for _, s := range families {
		if s.Name == fallback {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("no input family named %q", fallback)
}
