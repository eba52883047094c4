// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/calderae/atalaya/internal/model"
)

// AlertFilter defines filtering options for alert queries.
type AlertFilter struct {
	State     *model.AlertState
	Type      *model.AlertType
	Band      *model.RiskBand
	StudentID *int64
}

// ActionFilter defines filtering options for follow-up action queries.
type ActionFilter struct {
	StudentID   *int64
	RiskScoreID *int64
	Limit       int
}

// ScoreFilter defines filtering options for risk score queries.
type ScoreFilter struct {
	StudentID *int64
	Band      *model.RiskBand
	Kind      *model.ScoreKind
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Student operations
	GetStudentByID(ctx context.Context, id int64) (*model.Student, error)
	GetStudentByCode(ctx context.Context, code string) (*model.Student, error)
	GetStudentsByCodes(ctx context.Context, codes []string) (map[string]*model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	UpdateStudentProfile(ctx context.Context, student *model.Student) error
	GetCohortGroup(ctx context.Context, id int64) (*model.CohortGroup, error)

	// Attendance operations
	SaveAttendanceMark(ctx context.Context, mark *model.AttendanceMark) error
	GetAttendanceHistory(ctx context.Context, studentID, subjectID int64) ([]model.AttendanceMark, error)

	// Risk score operations
	SaveRiskScore(ctx context.Context, score *model.RiskScore) error
	GetLatestRiskScore(ctx context.Context, studentID int64) (*model.RiskScore, error)
	GetRiskScores(ctx context.Context, filter ScoreFilter) ([]model.RiskScore, error)

	// Alert operations
	SaveAlert(ctx context.Context, alert *model.Alert) error
	GetAlertByID(ctx context.Context, id int64) (*model.Alert, error)
	GetOpenAlerts(ctx context.Context, studentID int64) ([]model.Alert, error)
	GetAlerts(ctx context.Context, filter AlertFilter) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, alert *model.Alert) error

	// Follow-up action operations
	SaveAction(ctx context.Context, action *model.Action) error
	GetActions(ctx context.Context, filter ActionFilter) ([]model.Action, error)

	// Batch operations
	SaveScoreBatch(ctx context.Context, batch *model.ScoreBatch) error
	UpdateScoreBatch(ctx context.Context, batch *model.ScoreBatch) error
	GetScoreBatch(ctx context.Context, id string) (*model.ScoreBatch, error)
	ListScoreBatches(ctx context.Context) ([]model.ScoreBatch, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// BatchRowError records one failed row of a batch scoring run.
type BatchRowError struct {
	StudentCode string
	Message     string
	Row         int
}

// BatchResult is the structured outcome of a batch scoring run: a success
// count plus an error list, never a partial silent success.
type BatchResult struct {
	BatchID       string
	Errors        []BatchRowError
	TotalRows     int
	Processed     int
	TotalLow      int
	TotalMedium   int
	TotalHigh     int
	TotalCritical int
	AlertsCreated int
	Duration      time.Duration
}

// CountBand increments the per-band counter for one processed row.
func (r *BatchResult) CountBand(band model.RiskBand) {
	switch band {
	case model.BandLow:
		r.TotalLow++
	case model.BandMedium:
		r.TotalMedium++
	case model.BandHigh:
		r.TotalHigh++
	case model.BandCritical:
		r.TotalCritical++
	}
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
