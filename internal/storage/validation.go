package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calderae/atalaya/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidMark   = errors.New("invalid attendance mark")
	ErrInvalidScore  = errors.New("invalid risk score")
	ErrInvalidAlert  = errors.New("invalid alert")
	ErrInvalidAction = errors.New("invalid action")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateAttendanceMark(mark *model.AttendanceMark) error {
	if mark == nil {
		return fmt.Errorf("%w: mark", ErrNilParameter)
	}
	if mark.StudentID == 0 || mark.SubjectID == 0 {
		return fmt.Errorf("%w: missing student or subject", ErrInvalidMark)
	}
	if mark.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidMark)
	}
	if !mark.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMark, mark.Status)
	}
	return nil
}

func validateRiskScore(score *model.RiskScore) error {
	if score == nil {
		return fmt.Errorf("%w: score", ErrNilParameter)
	}
	if score.StudentID == 0 {
		return fmt.Errorf("%w: missing student", ErrInvalidScore)
	}
	if score.Probability < 0 || score.Probability > 1 {
		return fmt.Errorf("%w: probability %f out of range", ErrInvalidScore, score.Probability)
	}
	if !score.Band.Valid() {
		return fmt.Errorf("%w: unknown band %q", ErrInvalidScore, score.Band)
	}
	if score.ScoreDate.IsZero() {
		return fmt.Errorf("%w: missing score date", ErrInvalidScore)
	}
	return nil
}

func validateAction(action *model.Action) error {
	if action == nil {
		return fmt.Errorf("%w: action", ErrNilParameter)
	}
	if action.RiskScoreID == 0 {
		return fmt.Errorf("%w: missing risk score", ErrInvalidAction)
	}
	if strings.TrimSpace(action.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidAction)
	}
	if action.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidAction)
	}
	return nil
}

func validateAlert(alert *model.Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: alert", ErrNilParameter)
	}
	if alert.StudentID == 0 {
		return fmt.Errorf("%w: missing student", ErrInvalidAlert)
	}
	if !alert.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidAlert, alert.State)
	}
	if alert.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidAlert)
	}
	return nil
}
