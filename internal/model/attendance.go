package model

import "time"

// AttendanceStatus indicates how a student's presence was recorded for one
// class session.
type AttendanceStatus string

// Attendance status constants.
const (
	AttendancePresent     AttendanceStatus = "PRESENT"
	AttendanceAbsent      AttendanceStatus = "ABSENT"
	AttendanceExcused     AttendanceStatus = "EXCUSED"
	AttendanceNotEnrolled AttendanceStatus = "NOT_ENROLLED"
)

// Valid reports whether the status is one of the known constants.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused, AttendanceNotEnrolled:
		return true
	}
	return false
}

// AttendanceMark is one daily attendance record for a (student, subject)
// pair. At most one mark exists per (student, subject, date); the storage
// layer enforces the uniqueness.
type AttendanceMark struct {
	Date       time.Time
	Status     AttendanceStatus
	Note       string
	ID         int64
	StudentID  int64
	SubjectID  int64
	RecordedBy string
}
