package model

import "time"

// BatchStatus tracks the lifecycle of a batch scoring run.
type BatchStatus string

// Batch status constants.
const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// ScoreBatch is the persisted record of one batch scoring run: which file
// was scored, how many rows succeeded, and the per-band distribution.
type ScoreBatch struct {
	CreatedAt     time.Time
	ID            string
	FileName      string
	ModelVersion  string
	Status        BatchStatus
	ErrorSummary  string
	RequestedBy   string
	TotalRows     int
	TotalScored   int
	TotalLow      int
	TotalMedium   int
	TotalHigh     int
	TotalCritical int
}
