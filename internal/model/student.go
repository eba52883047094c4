// Package model defines the core domain models used throughout the application.
package model

import "time"

// Student is one enrolled student, identified internally by ID and
// externally by the registrar code printed on class lists.
type Student struct {
	BirthDate          *time.Time
	Gender             *string
	Grade              *string
	SocioStratum       *string
	WorkOccupation     *string
	LivesWith          *string
	FinancialSupport   *string
	AdmissionMode      *string
	HighSchoolType     *string
	Code               string
	FirstName          string
	LastName           string
	ID                 int64
	CohortGroupID      int64
}

// FullName returns the display name for a student.
func (s *Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Age derives the student's age in whole years from the stored birth date,
// as of the given reference time. Returns nil when no birth date is stored.
func (s *Student) Age(now time.Time) *int {
	if s.BirthDate == nil {
		return nil
	}
	age := now.Year() - s.BirthDate.Year()
	return &age
}

// CohortGroup is the class group a student belongs to. It links the student
// to a track (program area) and an academic term.
type CohortGroup struct {
	Track   *Track
	Term    *Term
	Name    string
	ID      int64
	TrackID int64
	TermID  *int64
}

// Track is the program area a cohort group belongs to (e.g. "Tecnologicas").
type Track struct {
	Name string
	ID   int64
}

// Term is an academic term. Its name begins with the ordinal token the
// scoring model was trained on (e.g. "First Semester 2026" -> "First").
type Term struct {
	Name string
	ID   int64
}

// Subject is a course a student attends.
type Subject struct {
	Name string
	Code string
	ID   int64
}
