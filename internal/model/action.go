package model

import "time"

// Action is a follow-up intervention recorded for a student, such as a
// tutoring session or a counseling referral. Every action is attached to
// the risk score that was most recent when it was recorded, so the
// intervention history reads against the evidence that prompted it.
// StudentID is derived from the attached score, not stored on the action.
type Action struct {
	Date        time.Time
	ID          int64
	RiskScoreID int64
	StudentID   int64
	Description string
	RecordedBy  string
}
