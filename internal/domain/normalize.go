package domain

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Normalize converts one raw measurement file into canonical records.
//
// Steps run in a fixed order because each assumes the previous one: trailing
// column drop, separator substitution, date parsing, exact-duplicate removal
// and finally the retention window. A column-count mismatch on the header or
// on any row rejects the whole file with a *MalformedInputError; date and
// radar problems only drop the offending row and are listed in the report.
func Normalize(raw RawTable, schema Schema) (NormalizedTable, error) {
	want := schema.ColumnCount()
	if got := len(raw.Header) - schema.TrailingDropCount; got != want {
		return NormalizedTable{}, &MalformedInputError{Source: raw.Source, Line: 1, Got: got, Want: want}
	}

	records := raw.Records
	if n := schema.FooterRows; n > 0 {
		records = records[:max(len(records)-n, 0)]
	}

	today := Today()
	var horizon time.Time
	if schema.RetentionYears > 0 {
		horizon = today.AddDate(-schema.RetentionYears, 0, 0)
	}

	table := NormalizedTable{
		Source:  raw.Source,
		Schema:  schema.Name,
		Records: make([]NormalizedRecord, 0, len(records)),
	}
	table.Report.RowsRead = len(records)

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if got := len(rec.Fields) - schema.TrailingDropCount; got != want {
			return NormalizedTable{}, &MalformedInputError{Source: raw.Source, Line: rec.Line, Got: got, Want: want}
		}

		row, err := normalizeRow(rec.Fields[:want], schema)
		if err != nil {
			table.Report.Dropped = append(table.Report.Dropped, RowDrop{Line: rec.Line, Err: err})
			continue
		}

		key := row.dedupKey(schema.Metrics)
		if _, dup := seen[key]; dup {
			table.Report.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		if row.Date.After(today) || (!horizon.IsZero() && !row.Date.After(horizon)) {
			table.Report.OutOfWindow++
			continue
		}

		table.Records = append(table.Records, row)
	}

	return table, nil
}

// normalizeRow coerces the data columns of one row: [date, radar, metrics...].
func normalizeRow(fields []string, schema Schema) (NormalizedRecord, error) {
	date, err := parseDate(substituteSeparators(fields[0]), schema.DateLayout)
	if err != nil {
		return NormalizedRecord{}, err
	}

	radar := strings.TrimSpace(fields[1])
	if radar == "" {
		return NormalizedRecord{}, ErrMissingRadar
	}

	metrics := make(map[string]*float64, len(schema.Metrics))
	for i, name := range schema.Metrics {
		metrics[name] = parseDecimal(fields[2+i])
	}

	return NormalizedRecord{RadarID: radar, Date: date, Metrics: metrics}, nil
}

// substituteSeparators rewrites the source locale's separators to dot-decimal.
// The delimiter byte doubles as a decimal placeholder in some exports, so it is
// first folded into "," and only then is "," turned into ".".
func substituteSeparators(value string) string {
	value = strings.ReplaceAll(value, ";", ",")
	return strings.ReplaceAll(value, ",", ".")
}

// parseDate keeps the first whitespace-separated token (dropping any time of
// day) and parses it as a UTC calendar date.
func parseDate(value, layout string) (time.Time, error) {
	var token string
	if fields := strings.Fields(value); len(fields) > 0 {
		token = fields[0]
	}
	t, err := time.Parse(layout, token)
	if err != nil {
		return time.Time{}, &DateParseError{Value: value, Layout: layout, Err: err}
	}
	return truncateDay(t), nil
}

// parseDecimal returns nil for empty or unparseable values.
func parseDecimal(value string) *float64 {
	s := strings.TrimSpace(substituteSeparators(value))
	if s == "" {
		return nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
