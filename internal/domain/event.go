package domain

import "time"

// IngestEvent announces that one source file was committed to the store.
type IngestEvent struct {
	BatchID    string    `json:"batch_id"`
	Source     string    `json:"source"`
	Family     string    `json:"family"`
	Rows       int       `json:"rows"`
	Dropped    int       `json:"dropped"`
	Duplicates int       `json:"duplicates"`
	IngestedAt time.Time `json:"ingested_at"`
}

// NewIngestEvent summarizes a committed table.
func NewIngestEvent(batchID string, table NormalizedTable, at time.Time) IngestEvent {
	return IngestEvent{
		BatchID:    batchID,
		Source:     table.Source,
		Family:     table.Schema,
		Rows:       len(table.Records),
		Dropped:    len(table.Report.Dropped) + table.Report.OutOfWindow,
		Duplicates: table.Report.Duplicates,
		IngestedAt: at.UTC(),
	}
}
