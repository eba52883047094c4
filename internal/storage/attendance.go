package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"

	"github.com/mattn/go-sqlite3"
)

// SaveAttendanceMark inserts one attendance mark. At most one mark may
// exist per (student, subject, calendar day): the date is truncated to
// the day and stored as YYYY-MM-DD so marks recorded at different times
// of the same day still collide on the unique constraint. Violations
// surface as duplicate entries rather than silent upserts.
func (s *SQLiteStorage) SaveAttendanceMark(ctx context.Context, mark *model.AttendanceMark) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAttendanceMark(mark); err != nil {
		return err
	}
	mark.Date = markDay(mark.Date)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_marks (student_id, subject_id, date, status, note, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		mark.StudentID, mark.SubjectID, mark.Date.Format("2006-01-02"), string(mark.Status), mark.Note, mark.RecordedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: attendance for student %d, subject %d on %s",
				common.ErrDuplicateEntry, mark.StudentID, mark.SubjectID, mark.Date.Format("2006-01-02"))
		}
		return fmt.Errorf("failed to save attendance mark: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read attendance mark id: %w", err)
	}
	mark.ID = id
	return nil
}

// GetAttendanceHistory returns every mark for a (student, subject) pair,
// most recent first. The streak counter depends on this ordering.
func (s *SQLiteStorage) GetAttendanceHistory(ctx context.Context, studentID, subjectID int64) ([]model.AttendanceMark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, subject_id, date, status, note, recorded_by
		FROM attendance_marks
		WHERE student_id = ? AND subject_id = ?
		ORDER BY date DESC, id DESC`,
		studentID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var marks []model.AttendanceMark
	for rows.Next() {
		var mark model.AttendanceMark
		var status string
		var note, recordedBy *string
		if scanErr := rows.Scan(&mark.ID, &mark.StudentID, &mark.SubjectID,
			&mark.Date, &status, &note, &recordedBy); scanErr != nil {
			return nil, fmt.Errorf("failed to scan attendance mark: %w", scanErr)
		}
		mark.Status = model.AttendanceStatus(status)
		if note != nil {
			mark.Note = *note
		}
		if recordedBy != nil {
			mark.RecordedBy = *recordedBy
		}
		marks = append(marks, mark)
	}
	return marks, rows.Err()
}

// markDay drops the time-of-day component. UTC matches how the driver
// reads the stored YYYY-MM-DD value back.
func markDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return errors.Is(sqliteErr.ExtendedCode, sqlite3.ErrConstraintUnique) ||
			errors.Is(sqliteErr.ExtendedCode, sqlite3.ErrConstraintPrimaryKey)
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
