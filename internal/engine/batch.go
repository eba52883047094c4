package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/features"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

// maxStoredErrors caps how many row errors are kept on the persisted batch
// record; the full list still comes back in the BatchResult.
const maxStoredErrors = 20

// BatchRow is one parsed row of a batch scoring file.
type BatchRow struct {
	Override    *features.SocioOverride
	StudentCode string
	Academic    features.AcademicInput
	Row         int
}

// ProgressFunc reports batch progress; it may be nil.
type ProgressFunc func(done, total int)

// ScoreBatch scores many students in one run. The whole batch goes through
// the preprocessing pipeline in a single pass so imputation sees the full
// record set; alert evaluation then runs per student. Rows for unknown
// student codes are recorded as errors while the batch continues: the
// result always carries the processed count and the error list, never a
// partial silent success.
func (e *ScoringEngine) ScoreBatch(ctx context.Context, fileName, requestedBy string, rows []BatchRow, progress ProgressFunc) (*service.BatchResult, error) {
	started := e.now()

	batch := &model.ScoreBatch{
		ID:           uuid.NewString(),
		FileName:     fileName,
		RequestedBy:  requestedBy,
		Status:       model.BatchProcessing,
		TotalRows:    len(rows),
		ModelVersion: e.mlCtx.Version(),
		CreatedAt:    started,
	}
	if err := e.storage.SaveScoreBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch record: %w", err)
	}

	result := &service.BatchResult{BatchID: batch.ID, TotalRows: len(rows)}

	// Resolve every student up front; unknown codes become row errors.
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.StudentCode)
	}
	students, err := e.storage.GetStudentsByCodes(ctx, codes)
	if err != nil {
		return nil, e.failBatch(ctx, batch, fmt.Errorf("failed to resolve students: %w", err))
	}

	type pending struct {
		student *model.Student
		record  model.FeatureRecord
		row     BatchRow
	}
	assembled := make([]pending, 0, len(rows))
	records := make([]model.FeatureRecord, 0, len(rows))

	for _, row := range rows {
		student, ok := students[row.StudentCode]
		if !ok {
			result.Errors = append(result.Errors, service.BatchRowError{
				Row:         row.Row,
				StudentCode: row.StudentCode,
				Message:     fmt.Sprintf("student not found: %s", row.StudentCode),
			})
			continue
		}

		e.refreshProfile(ctx, student, row.Override)

		cohort, cohortErr := e.storage.GetCohortGroup(ctx, student.CohortGroupID)
		if cohortErr != nil && !errors.Is(cohortErr, common.ErrNotFound) {
			return nil, e.failBatch(ctx, batch, fmt.Errorf("failed to resolve cohort group: %w", cohortErr))
		}

		record, asmErr := features.Assemble(student, cohort, row.Academic, row.Override, e.now())
		if asmErr != nil {
			result.Errors = append(result.Errors, service.BatchRowError{
				Row:         row.Row,
				StudentCode: row.StudentCode,
				Message:     asmErr.Error(),
			})
			continue
		}

		assembled = append(assembled, pending{student: student, record: record, row: row})
		records = append(records, record)
	}

	if len(records) > 0 {
		// One pipeline pass for the whole batch. A model failure here is
		// batch-scoped and fatal: no per-row fallback scoring.
		results, scoreErr := e.mlCtx.ScoreBatch(records)
		if scoreErr != nil {
			return nil, e.failBatch(ctx, batch, scoreErr)
		}

		for i, p := range assembled {
			score, persistErr := e.persistScore(ctx, p.student.ID, p.record, results[i], model.ScoreBatched, &batch.ID)
			if persistErr != nil {
				result.Errors = append(result.Errors, service.BatchRowError{
					Row:         p.row.Row,
					StudentCode: p.row.StudentCode,
					Message:     persistErr.Error(),
				})
				continue
			}

			alert, alertErr := e.alerts.HandleRiskScore(ctx, score)
			if alertErr != nil {
				result.Errors = append(result.Errors, service.BatchRowError{
					Row:         p.row.Row,
					StudentCode: p.row.StudentCode,
					Message:     alertErr.Error(),
				})
				continue
			}
			if alert != nil {
				result.AlertsCreated++
			}

			result.Processed++
			result.CountBand(score.Band)
			if progress != nil {
				progress(result.Processed, len(rows))
			}
		}
	}

	result.Duration = time.Since(started)

	batch.Status = model.BatchCompleted
	batch.TotalScored = result.Processed
	batch.TotalLow = result.TotalLow
	batch.TotalMedium = result.TotalMedium
	batch.TotalHigh = result.TotalHigh
	batch.TotalCritical = result.TotalCritical
	batch.ErrorSummary = summarizeErrors(result.Errors)
	if err := e.storage.UpdateScoreBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to finalize batch record: %w", err)
	}

	slog.Info("Batch scoring completed",
		"batch_id", batch.ID,
		"total_rows", len(rows),
		"processed", result.Processed,
		"failed", len(result.Errors),
		"alerts_created", result.AlertsCreated,
		"duration", result.Duration)
	return result, nil
}

// refreshProfile writes caller-supplied sociodemographic values back onto
// the stored student record so later scoring runs see them. A supplied age
// backfills a January 1st birth date only when none is stored.
func (e *ScoringEngine) refreshProfile(ctx context.Context, student *model.Student, override *features.SocioOverride) {
	if override == nil {
		return
	}

	changed := false
	apply := func(target **string, value *string) {
		if value != nil && strings.TrimSpace(*value) != "" {
			*target = value
			changed = true
		}
	}
	apply(&student.Grade, override.Grade)
	apply(&student.Gender, override.Gender)
	apply(&student.SocioStratum, override.SocioStratum)
	apply(&student.WorkOccupation, override.WorkOccupation)
	apply(&student.LivesWith, override.LivesWith)
	apply(&student.FinancialSupport, override.Support)
	apply(&student.AdmissionMode, override.AdmissionMode)
	apply(&student.HighSchoolType, override.HighSchool)

	if override.Age != nil && student.BirthDate == nil {
		birthYear := e.now().Year() - int(*override.Age)
		birthDate := time.Date(birthYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		student.BirthDate = &birthDate
		changed = true
	}

	if !changed {
		return
	}
	if err := e.storage.UpdateStudentProfile(ctx, student); err != nil {
		// Profile refresh is best effort; scoring still proceeds with the
		// in-memory values.
		slog.Warn("Failed to update student profile",
			"student_id", student.ID,
			"error", err)
	}
}

func (e *ScoringEngine) failBatch(ctx context.Context, batch *model.ScoreBatch, cause error) error {
	batch.Status = model.BatchFailed
	batch.ErrorSummary = cause.Error()
	if err := e.storage.UpdateScoreBatch(ctx, batch); err != nil {
		slog.Error("Failed to mark batch as failed", "batch_id", batch.ID, "error", err)
	}
	return cause
}

func summarizeErrors(rowErrors []service.BatchRowError) string {
	if len(rowErrors) == 0 {
		return ""
	}
	limit := len(rowErrors)
	if limit > maxStoredErrors {
		limit = maxStoredErrors
	}
	messages := make([]string, 0, limit)
	for _, re := range rowErrors[:limit] {
		messages = append(messages, re.Message)
	}
	return strings.Join(messages, "; ")
}
