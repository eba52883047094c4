package storage

import (
	"context"
	"fmt"

	"github.com/calderae/atalaya/internal/model"
)

// Catalog writes live outside the service.Storage contract: tracks, terms,
// cohort groups, subjects and student registration change rarely and only
// through the catalog commands (and test fixtures), never through the
// scoring or alert paths.

// CreateTrack inserts a track and returns it with its identifier set.
func (s *SQLiteStorage) CreateTrack(ctx context.Context, name string) (*model.Track, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO tracks (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create track: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Track{ID: id, Name: name}, nil
}

// CreateTerm inserts a term.
func (s *SQLiteStorage) CreateTerm(ctx context.Context, name string) (*model.Term, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO terms (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create term: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Term{ID: id, Name: name}, nil
}

// CreateCohortGroup inserts a cohort group bound to a track and an
// optional term.
func (s *SQLiteStorage) CreateCohortGroup(ctx context.Context, name string, trackID int64, termID *int64) (*model.CohortGroup, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO cohort_groups (name, track_id, term_id) VALUES (?, ?, ?)`,
		name, trackID, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to create cohort group: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.CohortGroup{ID: id, Name: name, TrackID: trackID, TermID: termID}, nil
}

// CreateStudent inserts a student and sets its identifier.
func (s *SQLiteStorage) CreateStudent(ctx context.Context, student *model.Student) error {
	if student == nil {
		return fmt.Errorf("%w: student", ErrNilParameter)
	}
	if err := validateString(student.Code, "student.Code"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO students (code, first_name, last_name, cohort_group_id,
			birth_date, gender, grade, socio_stratum, work_occupation,
			lives_with, financial_support, admission_mode, high_school_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		student.Code, student.FirstName, student.LastName, student.CohortGroupID,
		nullTime(student.BirthDate), student.Gender, student.Grade,
		student.SocioStratum, student.WorkOccupation, student.LivesWith,
		student.FinancialSupport, student.AdmissionMode, student.HighSchoolType)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read student id: %w", err)
	}
	student.ID = id
	return nil
}

// CreateSubject inserts a subject.
func (s *SQLiteStorage) CreateSubject(ctx context.Context, code, name string) (*model.Subject, error) {
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (code, name) VALUES (?, ?)`, code, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Subject{ID: id, Code: code, Name: name}, nil
}

// GetSubjectByCode retrieves a subject by code.
func (s *SQLiteStorage) GetSubjectByCode(ctx context.Context, code string) (*model.Subject, error) {
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}
	var subject model.Subject
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, name FROM subjects WHERE code = ?`, code).
		Scan(&subject.ID, &subject.Code, &subject.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject %q: %w", code, err)
	}
	return &subject, nil
}
