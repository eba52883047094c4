package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

func markOn(studentID, subjectID int64, day time.Time, status model.AttendanceStatus) *model.AttendanceMark {
	return &model.AttendanceMark{
		StudentID:  studentID,
		SubjectID:  subjectID,
		Date:       day,
		Status:     status,
		RecordedBy: "test",
	}
}

func TestSQLiteStorage_SaveAttendanceMark(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, subject := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")

	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	mark := markOn(student.ID, subject.ID, day, model.AttendanceAbsent)
	if err := store.SaveAttendanceMark(ctx, mark); err != nil {
		t.Fatalf("SaveAttendanceMark failed: %v", err)
	}
	if mark.ID == 0 {
		t.Errorf("Expected mark id to be set")
	}
}

func TestSQLiteStorage_SaveAttendanceMark_Duplicate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, subject := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")

	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if err := store.SaveAttendanceMark(ctx, markOn(student.ID, subject.ID, day, model.AttendanceAbsent)); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	err := store.SaveAttendanceMark(ctx, markOn(student.ID, subject.ID, day, model.AttendancePresent))
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}
}

func TestSQLiteStorage_SaveAttendanceMark_SameDayDifferentTimes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, subject := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")

	morning := time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local)
	afternoon := time.Date(2026, 8, 24, 15, 0, 0, 0, time.Local)

	first := markOn(student.ID, subject.ID, morning, model.AttendanceAbsent)
	if err := store.SaveAttendanceMark(ctx, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if !first.Date.Equal(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected date truncated to the day, got %v", first.Date)
	}

	err := store.SaveAttendanceMark(ctx, markOn(student.ID, subject.ID, afternoon, model.AttendanceAbsent))
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry for second mark on the same day, got %v", err)
	}

	history, err := store.GetAttendanceHistory(ctx, student.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetAttendanceHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 mark for the day, got %d", len(history))
	}
}

func TestSQLiteStorage_SaveAttendanceMark_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	err := store.SaveAttendanceMark(ctx, &model.AttendanceMark{
		StudentID: 1,
		SubjectID: 1,
		Date:      time.Now(),
		Status:    "LATE",
	})
	if !errors.Is(err, ErrInvalidMark) {
		t.Errorf("Expected ErrInvalidMark for unknown status, got %v", err)
	}

	err = store.SaveAttendanceMark(ctx, &model.AttendanceMark{
		SubjectID: 1,
		Date:      time.Now(),
		Status:    model.AttendanceAbsent,
	})
	if !errors.Is(err, ErrInvalidMark) {
		t.Errorf("Expected ErrInvalidMark for missing student, got %v", err)
	}
}

func TestSQLiteStorage_GetAttendanceHistory_MostRecentFirst(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, subject := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")

	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	statuses := []model.AttendanceStatus{
		model.AttendancePresent,
		model.AttendanceAbsent,
		model.AttendanceAbsent,
	}
	for i, status := range statuses {
		mark := markOn(student.ID, subject.ID, base.AddDate(0, 0, i), status)
		if err := store.SaveAttendanceMark(ctx, mark); err != nil {
			t.Fatalf("Save mark %d failed: %v", i, err)
		}
	}

	history, err := store.GetAttendanceHistory(ctx, student.ID, subject.ID)
	if err != nil {
		t.Fatalf("GetAttendanceHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 marks, got %d", len(history))
	}
	if history[0].Status != model.AttendanceAbsent || history[2].Status != model.AttendancePresent {
		t.Errorf("Expected most recent first, got %v", history)
	}
	if !history[0].Date.After(history[1].Date) {
		t.Errorf("Expected descending dates, got %v then %v", history[0].Date, history[1].Date)
	}
}
