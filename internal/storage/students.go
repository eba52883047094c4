package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

const studentColumns = `id, code, first_name, last_name, cohort_group_id, birth_date,
	gender, grade, socio_stratum, work_occupation, lives_with,
	financial_support, admission_mode, high_school_type`

// GetStudentByID retrieves a student by internal identifier.
func (s *SQLiteStorage) GetStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	return scanStudent(row)
}

// GetStudentByCode retrieves a student by registrar code.
func (s *SQLiteStorage) GetStudentByCode(ctx context.Context, code string) (*model.Student, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE code = ?`, code)
	return scanStudent(row)
}

// GetStudentsByCodes retrieves every student whose code appears in the
// list, keyed by code. Codes with no matching student are simply absent
// from the map; the caller decides whether that is an error.
func (s *SQLiteStorage) GetStudentsByCodes(ctx context.Context, codes []string) (map[string]*model.Student, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return map[string]*model.Student{}, nil
	}

	placeholders := strings.Repeat("?,", len(codes))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(codes))
	for i, code := range codes {
		args[i] = code
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE code IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer func() { _ = rows.Close() }()

	students := make(map[string]*model.Student)
	for rows.Next() {
		student, scanErr := scanStudentRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		students[student.Code] = student
	}
	return students, rows.Err()
}

// ListStudents returns all students ordered by code.
func (s *SQLiteStorage) ListStudents(ctx context.Context) ([]model.Student, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var students []model.Student
	for rows.Next() {
		student, scanErr := scanStudentRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		students = append(students, *student)
	}
	return students, rows.Err()
}

// UpdateStudentProfile persists the mutable sociodemographic attributes.
func (s *SQLiteStorage) UpdateStudentProfile(ctx context.Context, student *model.Student) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if student == nil {
		return fmt.Errorf("%w: student", ErrNilParameter)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE students SET
			birth_date = ?, gender = ?, grade = ?, socio_stratum = ?,
			work_occupation = ?, lives_with = ?, financial_support = ?,
			admission_mode = ?, high_school_type = ?
		WHERE id = ?`,
		nullTime(student.BirthDate), student.Gender, student.Grade,
		student.SocioStratum, student.WorkOccupation, student.LivesWith,
		student.FinancialSupport, student.AdmissionMode, student.HighSchoolType,
		student.ID)
	if err != nil {
		return fmt.Errorf("failed to update student %d: %w", student.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrStudentNotFound
	}
	return nil
}

// GetCohortGroup retrieves a cohort group with its track and term resolved.
func (s *SQLiteStorage) GetCohortGroup(ctx context.Context, id int64) (*model.CohortGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.name, g.track_id, g.term_id,
		       t.name, tm.name
		FROM cohort_groups g
		JOIN tracks t ON t.id = g.track_id
		LEFT JOIN terms tm ON tm.id = g.term_id
		WHERE g.id = ?`, id)

	var group model.CohortGroup
	var termID sql.NullInt64
	var trackName string
	var termName sql.NullString
	err := row.Scan(&group.ID, &group.Name, &group.TrackID, &termID, &trackName, &termName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cohort group: %w", err)
	}

	group.Track = &model.Track{ID: group.TrackID, Name: trackName}
	if termID.Valid {
		group.TermID = &termID.Int64
		if termName.Valid {
			group.Term = &model.Term{ID: termID.Int64, Name: termName.String}
		}
	}
	return &group, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row *sql.Row) (*model.Student, error) {
	student, err := scanStudentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func scanStudentRow(scanner rowScanner) (*model.Student, error) {
	var student model.Student
	var birthDate sql.NullTime
	var gender, grade, stratum, occupation, livesWith, support, admission, school sql.NullString

	err := scanner.Scan(
		&student.ID, &student.Code, &student.FirstName, &student.LastName,
		&student.CohortGroupID, &birthDate,
		&gender, &grade, &stratum, &occupation, &livesWith,
		&support, &admission, &school)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	if birthDate.Valid {
		student.BirthDate = &birthDate.Time
	}
	student.Gender = nullString(gender)
	student.Grade = nullString(grade)
	student.SocioStratum = nullString(stratum)
	student.WorkOccupation = nullString(occupation)
	student.LivesWith = nullString(livesWith)
	student.FinancialSupport = nullString(support)
	student.AdmissionMode = nullString(admission)
	student.HighSchoolType = nullString(school)
	return &student, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
