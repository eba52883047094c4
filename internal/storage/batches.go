package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

const batchColumns = `id, file_name, requested_by, status, total_rows, total_scored,
	total_low, total_medium, total_high, total_critical, error_summary,
	model_version, created_at`

// SaveScoreBatch inserts a new batch record.
func (s *SQLiteStorage) SaveScoreBatch(ctx context.Context, batch *model.ScoreBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batch.ID, "batch.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_batches (id, file_name, requested_by, status, total_rows,
			total_scored, total_low, total_medium, total_high, total_critical,
			error_summary, model_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.FileName, batch.RequestedBy, string(batch.Status),
		batch.TotalRows, batch.TotalScored, batch.TotalLow, batch.TotalMedium,
		batch.TotalHigh, batch.TotalCritical, batch.ErrorSummary,
		batch.ModelVersion, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save score batch: %w", err)
	}
	return nil
}

// UpdateScoreBatch persists the final counters and status of a batch run.
func (s *SQLiteStorage) UpdateScoreBatch(ctx context.Context, batch *model.ScoreBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE score_batches
		SET status = ?, total_scored = ?, total_low = ?, total_medium = ?,
			total_high = ?, total_critical = ?, error_summary = ?
		WHERE id = ?`,
		string(batch.Status), batch.TotalScored, batch.TotalLow, batch.TotalMedium,
		batch.TotalHigh, batch.TotalCritical, batch.ErrorSummary, batch.ID)
	if err != nil {
		return fmt.Errorf("failed to update score batch %s: %w", batch.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: batch %s", common.ErrNotFound, batch.ID)
	}
	return nil
}

// GetScoreBatch retrieves one batch record.
func (s *SQLiteStorage) GetScoreBatch(ctx context.Context, id string) (*model.ScoreBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM score_batches WHERE id = ?`, id)
	batch, err := scanScoreBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %s", common.ErrNotFound, id)
	}
	return batch, err
}

// ListScoreBatches returns all batch records, most recent first.
func (s *SQLiteStorage) ListScoreBatches(ctx context.Context) ([]model.ScoreBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM score_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query score batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.ScoreBatch
	for rows.Next() {
		batch, scanErr := scanScoreBatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

func scanScoreBatch(scanner rowScanner) (*model.ScoreBatch, error) {
	var batch model.ScoreBatch
	var status string
	var requestedBy, errorSummary, modelVersion sql.NullString

	err := scanner.Scan(&batch.ID, &batch.FileName, &requestedBy, &status,
		&batch.TotalRows, &batch.TotalScored, &batch.TotalLow, &batch.TotalMedium,
		&batch.TotalHigh, &batch.TotalCritical, &errorSummary, &modelVersion,
		&batch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan score batch: %w", err)
	}

	batch.Status = model.BatchStatus(status)
	if requestedBy.Valid {
		batch.RequestedBy = requestedBy.String
	}
	if errorSummary.Valid {
		batch.ErrorSummary = errorSummary.String
	}
	if modelVersion.Valid {
		batch.ModelVersion = modelVersion.String
	}
	return &batch, nil
}
