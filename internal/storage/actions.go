package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

// SaveAction inserts one follow-up action. The date is truncated to the
// calendar day like attendance marks.
func (s *SQLiteStorage) SaveAction(ctx context.Context, action *model.Action) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAction(action); err != nil {
		return err
	}
	action.Date = markDay(action.Date)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (risk_score_id, description, date, recorded_by)
		VALUES (?, ?, ?, ?)`,
		action.RiskScoreID, action.Description, action.Date.Format("2006-01-02"), action.RecordedBy)
	if err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read action id: %w", err)
	}
	action.ID = id
	return nil
}

// GetActions returns follow-up actions, most recent first. The student
// for each action comes from the attached risk score.
func (s *SQLiteStorage) GetActions(ctx context.Context, filter service.ActionFilter) ([]model.Action, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT a.id, a.risk_score_id, rs.student_id, a.description, a.date, a.recorded_by
		FROM actions a
		JOIN risk_scores rs ON rs.id = a.risk_score_id`

	var conditions []string
	var args []any
	if filter.StudentID != nil {
		conditions = append(conditions, "rs.student_id = ?")
		args = append(args, *filter.StudentID)
	}
	if filter.RiskScoreID != nil {
		conditions = append(conditions, "a.risk_score_id = ?")
		args = append(args, *filter.RiskScoreID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.date DESC, a.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var actions []model.Action
	for rows.Next() {
		var action model.Action
		var recordedBy *string
		if scanErr := rows.Scan(&action.ID, &action.RiskScoreID, &action.StudentID,
			&action.Description, &action.Date, &recordedBy); scanErr != nil {
			return nil, fmt.Errorf("failed to scan action: %w", scanErr)
		}
		if recordedBy != nil {
			action.RecordedBy = *recordedBy
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
