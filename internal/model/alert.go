package model

import "time"

// AlertType classifies why an alert was raised.
type AlertType string

// Alert type constants.
const (
	// AlertEarly is raised when a new risk score lands in the High or
	// Critical band.
	AlertEarly AlertType = "EARLY"
	// AlertCritical is raised when a moderate absence streak coincides
	// with a High or Critical predictive band.
	AlertCritical AlertType = "CRITICAL"
	// AlertDropoutRisk is raised on a long absence streak regardless of
	// the predictive band.
	AlertDropoutRisk AlertType = "DROPOUT_RISK"
)

// AlertState is the lifecycle state of an alert.
type AlertState string

// Alert state constants. Resolved and Discarded are terminal.
const (
	AlertActive    AlertState = "ACTIVE"
	AlertInReview  AlertState = "IN_REVIEW"
	AlertResolved  AlertState = "RESOLVED"
	AlertDiscarded AlertState = "DISCARDED"
)

// Valid reports whether the state is one of the known constants.
func (s AlertState) Valid() bool {
	switch s {
	case AlertActive, AlertInReview, AlertResolved, AlertDiscarded:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave this state.
func (s AlertState) Terminal() bool {
	return s == AlertResolved || s == AlertDiscarded
}

// Open reports whether the alert still demands attention.
func (s AlertState) Open() bool {
	return s == AlertActive || s == AlertInReview
}

// Alert is one at-risk notification for a student. Alerts are created by
// the alert lifecycle engine and mutated only through its state
// transitions; they are never physically deleted (Discarded is a terminal
// soft delete).
type Alert struct {
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	ResolvedBy     *string
	ResolutionNote *string
	RiskScoreID    *int64
	SubjectID      *int64
	Type           AlertType
	Band           RiskBand
	State          AlertState
	Title          string
	Description    string
	AbsenceStreak  int
	ID             int64
	StudentID      int64
}
