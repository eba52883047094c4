package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

const alertColumns = `id, type, band, state, student_id, risk_score_id, subject_id,
	title, description, absence_streak, created_at, resolved_at, resolved_by, resolution_note`

// SaveAlert inserts a new alert.
func (s *SQLiteStorage) SaveAlert(ctx context.Context, alert *model.Alert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (type, band, state, student_id, risk_score_id, subject_id,
			title, description, absence_streak, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(alert.Type), string(alert.Band), string(alert.State),
		alert.StudentID, alert.RiskScoreID, alert.SubjectID,
		alert.Title, alert.Description, alert.AbsenceStreak, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read alert id: %w", err)
	}
	alert.ID = id
	return nil
}

// GetAlertByID retrieves one alert.
func (s *SQLiteStorage) GetAlertByID(ctx context.Context, id int64) (*model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: alert %d", common.ErrNotFound, id)
	}
	return alert, err
}

// GetOpenAlerts returns every Active or InReview alert for a student,
// oldest first, so auto-resolution walks them in creation order.
func (s *SQLiteStorage) GetOpenAlerts(ctx context.Context, studentID int64) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE student_id = ? AND state IN (?, ?)
		ORDER BY created_at, id`,
		studentID, string(model.AlertActive), string(model.AlertInReview))
	if err != nil {
		return nil, fmt.Errorf("failed to query open alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAlerts(rows)
}

// GetAlerts returns alerts matching the filter, most recent first.
func (s *SQLiteStorage) GetAlerts(ctx context.Context, filter service.AlertFilter) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []any{}
	if filter.State != nil {
		query += ` AND state = ?`
		args = append(args, string(*filter.State))
	}
	if filter.Type != nil {
		query += ` AND type = ?`
		args = append(args, string(*filter.Type))
	}
	if filter.Band != nil {
		query += ` AND band = ?`
		args = append(args, string(*filter.Band))
	}
	if filter.StudentID != nil {
		query += ` AND student_id = ?`
		args = append(args, *filter.StudentID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAlerts(rows)
}

// UpdateAlert persists a state transition applied by the alert engine.
// Only lifecycle fields change; creation fields are immutable.
func (s *SQLiteStorage) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET state = ?, resolved_at = ?, resolved_by = ?, resolution_note = ?
		WHERE id = ?`,
		string(alert.State), alert.ResolvedAt, alert.ResolvedBy, alert.ResolutionNote, alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: alert %d", common.ErrNotFound, alert.ID)
	}
	return nil
}

func collectAlerts(rows *sql.Rows) ([]model.Alert, error) {
	var alerts []model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func scanAlert(scanner rowScanner) (*model.Alert, error) {
	var alert model.Alert
	var alertType, band, state string
	var riskScoreID, subjectID sql.NullInt64
	var resolvedAt sql.NullTime
	var resolvedBy, note sql.NullString

	err := scanner.Scan(&alert.ID, &alertType, &band, &state, &alert.StudentID,
		&riskScoreID, &subjectID, &alert.Title, &alert.Description,
		&alert.AbsenceStreak, &alert.CreatedAt, &resolvedAt, &resolvedBy, &note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Type = model.AlertType(alertType)
	alert.Band = model.RiskBand(band)
	alert.State = model.AlertState(state)
	if riskScoreID.Valid {
		alert.RiskScoreID = &riskScoreID.Int64
	}
	if subjectID.Valid {
		alert.SubjectID = &subjectID.Int64
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	alert.ResolvedBy = nullString(resolvedBy)
	alert.ResolutionNote = nullString(note)
	return &alert, nil
}
