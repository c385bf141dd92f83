package model

import "time"

// IngestSummary captures metrics from a single feed ingestion.
type IngestSummary struct {
	Feed         FeedKind `json:"feed"`
	Source       string   `json:"source,omitempty"`
	SourceSHA256 string   `json:"sourceSha256,omitempty"`
	BatchID      string   `json:"batchId"`
	Sheet        string   `json:"sheet,omitempty"`

	// Headers maps each resolved canonical field to its source header.
	Headers map[string]string `json:"headers"`

	RowsRead         int64         `json:"rowsRead"`
	RowsAccepted     int64         `json:"rowsAccepted"`
	RowsDropped      int64         `json:"rowsDropped"`
	DroppedNoClient  int64         `json:"droppedNoClient"`
	DroppedBadPeriod int64         `json:"droppedBadPeriod"`
	DurationBuild    time.Duration `json:"durationBuild"`
	DurationTotal    time.Duration `json:"durationTotal"`
}
