// Package alerts implements the alert lifecycle engine: it decides when
// scoring results and attendance streaks open, escalate, or auto-resolve
// alerts, and it exclusively owns every alert state transition.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

// Escalation thresholds for trailing-absence streaks.
const (
	// streakWatch is the lowest streak that triggers any evaluation.
	streakWatch = 3
	// streakDropout is the institutional threshold for a dropout-risk
	// alert regardless of the predictive band.
	streakDropout = 5
)

// Engine evaluates alert rules and applies state transitions. Evaluations
// for one student are serialized internally so a concurrent auto-resolution
// can never race an alert creation for the same student.
type Engine struct {
	storage     service.Storage
	now         func() time.Time
	studentLock map[int64]*sync.Mutex
	mu          sync.Mutex
}

// NewEngine creates an alert engine on top of the persistence layer.
func NewEngine(storage service.Storage) *Engine {
	return &Engine{
		storage:     storage,
		now:         time.Now,
		studentLock: make(map[int64]*sync.Mutex),
	}
}

func (e *Engine) lockStudent(studentID int64) func() {
	e.mu.Lock()
	lock, ok := e.studentLock[studentID]
	if !ok {
		lock = &sync.Mutex{}
		e.studentLock[studentID] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// HandleRiskScore reacts to a freshly persisted risk score. A High or
// Critical band opens a new early alert, even when other alerts are already
// open: multiplicity is intentional, display-time collapsing belongs to
// consumers. A Low or Medium band auto-resolves every open alert for the
// student instead; this is the only transition with no human actor.
func (e *Engine) HandleRiskScore(ctx context.Context, score *model.RiskScore) (*model.Alert, error) {
	unlock := e.lockStudent(score.StudentID)
	defer unlock()

	if !score.Band.RequiresAlert() {
		return nil, e.autoResolve(ctx, score)
	}

	alert := &model.Alert{
		Type:        model.AlertEarly,
		Band:        score.Band,
		State:       model.AlertActive,
		StudentID:   score.StudentID,
		RiskScoreID: &score.ID,
		CreatedAt:   e.now(),
		Title: fmt.Sprintf("%s dropout risk (%.0f%%)",
			score.Band.Display(), score.Probability*100),
		Description: fmt.Sprintf(
			"The predictive model estimates a %.1f%% probability of dropout (%s band).",
			score.Probability*100, score.Band.Display()),
	}
	if err := e.storage.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save early alert: %w", err)
	}

	slog.Info("Early alert created",
		"student_id", score.StudentID,
		"band", score.Band,
		"probability", score.Probability,
		"alert_id", alert.ID)
	return alert, nil
}

// autoResolve moves every open alert for the student to Resolved. Each
// alert's note names its own prior band: concurrently open alerts may carry
// different bands and each resolves against the band it was raised at.
func (e *Engine) autoResolve(ctx context.Context, score *model.RiskScore) error {
	open, err := e.storage.GetOpenAlerts(ctx, score.StudentID)
	if err != nil {
		return fmt.Errorf("failed to load open alerts: %w", err)
	}

	resolvedAt := e.now()
	for i := range open {
		alert := &open[i]
		note := fmt.Sprintf(
			"Automatically resolved: risk improved from %s to %s (new probability %.1f%%).",
			alert.Band.Display(), score.Band.Display(), score.Probability*100)

		alert.State = model.AlertResolved
		alert.ResolvedAt = &resolvedAt
		alert.ResolutionNote = &note
		if err := e.storage.UpdateAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to auto-resolve alert %d: %w", alert.ID, err)
		}
		slog.Info("Alert auto-resolved",
			"alert_id", alert.ID,
			"student_id", score.StudentID,
			"prior_band", alert.Band,
			"new_band", score.Band)
	}
	return nil
}

// HandleAttendance evaluates the escalation rule for a (student, subject)
// pair after a new attendance mark. The streak is computed per pair; the
// most recent risk score is student-wide.
func (e *Engine) HandleAttendance(ctx context.Context, studentID, subjectID int64) (*model.Alert, error) {
	unlock := e.lockStudent(studentID)
	defer unlock()

	streak, err := e.Streak(ctx, studentID, subjectID)
	if err != nil {
		return nil, err
	}
	if streak < streakWatch {
		return nil, nil
	}

	latest, err := e.storage.GetLatestRiskScore(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest risk score: %w", err)
	}

	var alert *model.Alert
	switch {
	case streak >= streakDropout:
		alert = &model.Alert{
			Type:          model.AlertDropoutRisk,
			Band:          model.BandCritical,
			State:         model.AlertActive,
			StudentID:     studentID,
			SubjectID:     &subjectID,
			AbsenceStreak: streak,
			CreatedAt:     e.now(),
			Title:         fmt.Sprintf("Possible dropout: %d consecutive absences", streak),
			Description: fmt.Sprintf(
				"The student has accumulated %d consecutive absences in this subject, reaching the institutional threshold of %d.",
				streak, streakDropout),
		}
	case latest != nil && latest.Band.RequiresAlert():
		alert = &model.Alert{
			Type:          model.AlertCritical,
			Band:          latest.Band,
			State:         model.AlertActive,
			StudentID:     studentID,
			SubjectID:     &subjectID,
			RiskScoreID:   &latest.ID,
			AbsenceStreak: streak,
			CreatedAt:     e.now(),
			Title: fmt.Sprintf("%s risk and %d consecutive absences",
				latest.Band.Display(), streak),
			Description: fmt.Sprintf(
				"The student carries a %s dropout-risk band and has %d consecutive absences in this subject.",
				latest.Band.Display(), streak),
		}
	default:
		return nil, nil
	}

	if err := e.storage.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save attendance alert: %w", err)
	}
	slog.Info("Attendance alert created",
		"student_id", studentID,
		"subject_id", subjectID,
		"streak", streak,
		"type", alert.Type,
		"alert_id", alert.ID)
	return alert, nil
}

// Transition applies a human state change to an alert. Resolver identity
// and resolution time are stamped only when entering a terminal state, and
// terminal alerts reject any further transition.
func (e *Engine) Transition(ctx context.Context, alertID int64, to model.AlertState, actor string, note *string) (*model.Alert, error) {
	alert, err := e.storage.GetAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockStudent(alert.StudentID)
	defer unlock()

	// Reload under the lock so a concurrent auto-resolution is observed.
	alert, err = e.storage.GetAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if err := validTransition(alert.State, to); err != nil {
		return nil, err
	}

	alert.State = to
	alert.ResolutionNote = note
	if to.Terminal() {
		resolvedAt := e.now()
		alert.ResolvedAt = &resolvedAt
		alert.ResolvedBy = &actor
	}
	if err := e.storage.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to update alert %d: %w", alertID, err)
	}

	slog.Info("Alert transitioned",
		"alert_id", alertID,
		"state", to,
		"actor", actor)
	return alert, nil
}

// RecordAction registers a follow-up intervention for a student. The
// action attaches to the student's most recent risk score; a student who
// has never been scored cannot receive one, since the intervention
// history must read against the evidence that prompted it.
func (e *Engine) RecordAction(ctx context.Context, studentID int64, description string, date time.Time, recordedBy string) (*model.Action, error) {
	unlock := e.lockStudent(studentID)
	defer unlock()

	latest, err := e.storage.GetLatestRiskScore(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest risk score: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: student %d has no risk scores; score the student before recording actions",
			common.ErrInvalidInput, studentID)
	}

	action := &model.Action{
		Date:        date,
		RiskScoreID: latest.ID,
		StudentID:   studentID,
		Description: description,
		RecordedBy:  recordedBy,
	}
	if err := e.storage.SaveAction(ctx, action); err != nil {
		return nil, err
	}

	slog.Info("Follow-up action recorded",
		"student_id", studentID,
		"risk_score_id", latest.ID,
		"action_id", action.ID)
	return action, nil
}

func validTransition(from, to model.AlertState) error {
	if !to.Valid() || to == model.AlertActive {
		return fmt.Errorf("%w: cannot move an alert to %q", common.ErrInvalidTransition, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: alert is already %s", common.ErrInvalidTransition, from)
	}
	if from == model.AlertInReview && to == model.AlertInReview {
		return fmt.Errorf("%w: alert is already in review", common.ErrInvalidTransition)
	}
	return nil
}
