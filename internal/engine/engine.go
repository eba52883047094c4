// Package engine orchestrates scoring: feature assembly, the preprocessing
// pipeline, the classifier, score persistence, and the alert lifecycle
// engine, for individual students and for whole batches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/features"
	"github.com/calderae/atalaya/internal/ml"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

// ScoringEngine runs scoring requests against one loaded model context.
// The context is injected at construction and shared read-only across
// concurrent calls.
type ScoringEngine struct {
	storage service.Storage
	mlCtx   *ml.Context
	alerts  *alerts.Engine
	now     func() time.Time
}

// New creates a scoring engine with the given dependencies.
func New(storage service.Storage, mlCtx *ml.Context, alertEngine *alerts.Engine) (*ScoringEngine, error) {
	if mlCtx == nil {
		return nil, common.ErrModelUnavailable
	}
	return &ScoringEngine{
		storage: storage,
		mlCtx:   mlCtx,
		alerts:  alertEngine,
		now:     time.Now,
	}, nil
}

// ScoreOutcome is the result of one individual scoring call.
type ScoreOutcome struct {
	Score *model.RiskScore
	Alert *model.Alert
}

// ScoreStudent scores one student and runs the alert engine on the result.
// The persisted risk score is immutable history; repeated calls append new
// scores rather than overwrite.
func (e *ScoringEngine) ScoreStudent(ctx context.Context, studentID int64, academic features.AcademicInput, override *features.SocioOverride) (*ScoreOutcome, error) {
	student, err := e.storage.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	cohort, err := e.storage.GetCohortGroup(ctx, student.CohortGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cohort group: %w", err)
	}

	record, err := features.Assemble(student, cohort, academic, override, e.now())
	if err != nil {
		return nil, err
	}

	result, err := e.mlCtx.Score(record)
	if err != nil {
		return nil, err
	}

	score, err := e.persistScore(ctx, student.ID, record, result, model.ScoreIndividual, nil)
	if err != nil {
		return nil, err
	}

	alert, err := e.alerts.HandleRiskScore(ctx, score)
	if err != nil {
		return nil, err
	}

	slog.Info("Student scored",
		"student_id", student.ID,
		"probability", score.Probability,
		"band", score.Band,
		"alert_created", alert != nil)
	return &ScoreOutcome{Score: score, Alert: alert}, nil
}

func (e *ScoringEngine) persistScore(ctx context.Context, studentID int64, record model.FeatureRecord, result ml.Result, kind model.ScoreKind, batchID *string) (*model.RiskScore, error) {
	score := &model.RiskScore{
		StudentID:    studentID,
		Probability:  result.Probability,
		Band:         result.Band,
		Label:        result.Label,
		Features:     record.Clone(),
		ModelVersion: e.mlCtx.Version(),
		VariantTag:   e.mlCtx.VariantTag(),
		Kind:         kind,
		BatchID:      batchID,
		ScoreDate:    e.now(),
	}

	// Score inserts can transiently collide with the sqlite write lock
	// during concurrent attendance recording.
	err := common.WithRetry(ctx, func() error {
		return e.storage.SaveRiskScore(ctx, score)
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("failed to save risk score: %w", err)
	}
	return score, nil
}
