package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/adapter/intake"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_NormalizesCleanly(t *testing.T) {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(end.AddDate(0, 0, 1)))
	t.Cleanup(func() { domain.SetClock(nil) })

	tests := []struct {
		family          string
		read, kept, bad int
	}{
		{"daily", 23, 21, 1},
		// The bad-date line is the last one and doubles as the OTR footer.
		{"otr", 22, 21, 0},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			schema, err := domain.ResolveSchema(domain.Families(0), "", tt.family)
			require.NoError(t, err)

			data := generate(options{
				radars: []string{"S723E", "S724N"},
				days:   10,
				end:    end,
				schema: schema,
				seed:   7,
				noise:  true,
			})

			raw, err := intake.Parse(fileName(schema, end), bytes.NewReader(data), nil)
			require.NoError(t, err)
			table, err := domain.Normalize(raw, schema)
			require.NoError(t, err)

			assert.Equal(t, tt.read, table.Report.RowsRead)
			assert.Len(t, table.Records, tt.kept)
			assert.Len(t, table.Report.Dropped, tt.bad)
			assert.Equal(t, 1, table.Report.Duplicates)
		})
	}
}

func TestFileName_OTRMatchesPattern(t *testing.T) {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	schema, err := domain.ResolveSchema(domain.Families(0), "", "otr")
	require.NoError(t, err)
	assert.True(t, schema.Matches(fileName(schema, end)))
}

func TestDecimalComma(t *testing.T) {
	assert.Equal(t, "81,50", decimalComma(81.5))
}
