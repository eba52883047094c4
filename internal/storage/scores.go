package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

const scoreColumns = `id, student_id, probability, band, label, score_date, kind,
	batch_id, features, model_version, variant_tag, created_at`

// SaveRiskScore inserts one immutable risk score. Scores are append-only
// history; there is no update path.
func (s *SQLiteStorage) SaveRiskScore(ctx context.Context, score *model.RiskScore) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRiskScore(score); err != nil {
		return err
	}

	snapshot, err := json.Marshal(score.Features)
	if err != nil {
		return fmt.Errorf("failed to encode feature snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_scores (student_id, probability, band, label, score_date,
			kind, batch_id, features, model_version, variant_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		score.StudentID, score.Probability, string(score.Band), string(score.Label),
		score.ScoreDate, string(score.Kind), score.BatchID, string(snapshot),
		score.ModelVersion, score.VariantTag)
	if err != nil {
		return fmt.Errorf("failed to save risk score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read risk score id: %w", err)
	}
	score.ID = id
	return nil
}

// GetLatestRiskScore returns the student's current score: most recent by
// (score date desc, id desc). Returns nil without error when the student
// has never been scored.
func (s *SQLiteStorage) GetLatestRiskScore(ctx context.Context, studentID int64) (*model.RiskScore, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+scoreColumns+`
		FROM risk_scores
		WHERE student_id = ?
		ORDER BY score_date DESC, id DESC
		LIMIT 1`, studentID)

	score, err := scanRiskScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return score, err
}

// GetRiskScores returns scores matching the filter, most recent first.
func (s *SQLiteStorage) GetRiskScores(ctx context.Context, filter service.ScoreFilter) ([]model.RiskScore, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + scoreColumns + ` FROM risk_scores WHERE 1=1`
	args := []any{}
	if filter.StudentID != nil {
		query += ` AND student_id = ?`
		args = append(args, *filter.StudentID)
	}
	if filter.Band != nil {
		query += ` AND band = ?`
		args = append(args, string(*filter.Band))
	}
	if filter.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*filter.Kind))
	}
	if filter.From != nil {
		query += ` AND score_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND score_date <= ?`
		args = append(args, *filter.To)
	}
	query += ` ORDER BY score_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []model.RiskScore
	for rows.Next() {
		score, scanErr := scanRiskScore(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		scores = append(scores, *score)
	}
	return scores, rows.Err()
}

func scanRiskScore(scanner rowScanner) (*model.RiskScore, error) {
	var score model.RiskScore
	var band, label, kind string
	var batchID sql.NullString
	var snapshot string

	err := scanner.Scan(&score.ID, &score.StudentID, &score.Probability,
		&band, &label, &score.ScoreDate, &kind, &batchID, &snapshot,
		&score.ModelVersion, &score.VariantTag, &score.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan risk score: %w", err)
	}

	score.Band = model.RiskBand(band)
	score.Label = model.DropoutLabel(label)
	score.Kind = model.ScoreKind(kind)
	if batchID.Valid {
		score.BatchID = &batchID.String
	}
	if err := json.Unmarshal([]byte(snapshot), &score.Features); err != nil {
		return nil, fmt.Errorf("failed to decode feature snapshot: %w", err)
	}
	return &score, nil
}
