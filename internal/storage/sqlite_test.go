package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// seedCatalog creates a track, term, cohort group and subject.
func seedCatalog(t *testing.T, store *SQLiteStorage) (*model.CohortGroup, *model.Subject) {
	t.Helper()
	ctx := context.Background()

	track, err := store.CreateTrack(ctx, "Tecnologicas")
	if err != nil {
		t.Fatalf("Failed to create track: %v", err)
	}
	term, err := store.CreateTerm(ctx, "First Semester 2026")
	if err != nil {
		t.Fatalf("Failed to create term: %v", err)
	}
	group, err := store.CreateCohortGroup(ctx, "Group A", track.ID, &term.ID)
	if err != nil {
		t.Fatalf("Failed to create cohort group: %v", err)
	}
	subject, err := store.CreateSubject(ctx, "MAT-101", "Mathematics I")
	if err != nil {
		t.Fatalf("Failed to create subject: %v", err)
	}
	return group, subject
}

// seedStudent creates one student inside the given cohort group.
func seedStudent(t *testing.T, store *SQLiteStorage, groupID int64, code string) *model.Student {
	t.Helper()
	gender := "F"
	stratum := "2"
	birth := time.Date(2004, 3, 15, 0, 0, 0, 0, time.UTC)

	student := &model.Student{
		Code:          code,
		FirstName:     "Ana",
		LastName:      "Diaz",
		CohortGroupID: groupID,
		BirthDate:     &birth,
		Gender:        &gender,
		SocioStratum:  &stratum,
	}
	if err := store.CreateStudent(context.Background(), student); err != nil {
		t.Fatalf("Failed to create student: %v", err)
	}
	return student
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Running migrations twice must be a no-op.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
}

func TestSQLiteStorage_GetStudent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, _ := seedCatalog(t, store)
	created := seedStudent(t, store, group.ID, "2019114001")

	byID, err := store.GetStudentByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetStudentByID failed: %v", err)
	}
	if byID.Code != "2019114001" {
		t.Errorf("Expected code 2019114001, got %s", byID.Code)
	}
	if byID.Gender == nil || *byID.Gender != "F" {
		t.Errorf("Expected gender F, got %v", byID.Gender)
	}
	if byID.BirthDate == nil || byID.BirthDate.Year() != 2004 {
		t.Errorf("Expected birth year 2004, got %v", byID.BirthDate)
	}

	byCode, err := store.GetStudentByCode(ctx, "2019114001")
	if err != nil {
		t.Fatalf("GetStudentByCode failed: %v", err)
	}
	if byCode.ID != created.ID {
		t.Errorf("Expected id %d, got %d", created.ID, byCode.ID)
	}
}

func TestSQLiteStorage_GetStudentNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.GetStudentByID(ctx, 999); !errors.Is(err, common.ErrStudentNotFound) {
		t.Errorf("Expected ErrStudentNotFound, got %v", err)
	}
	if _, err := store.GetStudentByCode(ctx, "nope"); !errors.Is(err, common.ErrStudentNotFound) {
		t.Errorf("Expected ErrStudentNotFound, got %v", err)
	}
}

func TestSQLiteStorage_GetStudentsByCodes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, _ := seedCatalog(t, store)
	first := seedStudent(t, store, group.ID, "A-1")
	second := seedStudent(t, store, group.ID, "A-2")

	students, err := store.GetStudentsByCodes(ctx, []string{"A-1", "A-2", "missing"})
	if err != nil {
		t.Fatalf("GetStudentsByCodes failed: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("Expected 2 students, got %d", len(students))
	}
	if students["A-1"].ID != first.ID || students["A-2"].ID != second.ID {
		t.Errorf("Student ids do not match: %v", students)
	}
	if _, ok := students["missing"]; ok {
		t.Errorf("Unknown code must be absent from the result map")
	}
}

func TestSQLiteStorage_ListStudents(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	group, _ := seedCatalog(t, store)
	seedStudent(t, store, group.ID, "A-1")
	seedStudent(t, store, group.ID, "A-2")

	students, err := store.ListStudents(context.Background())
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("Expected 2 students, got %d", len(students))
	}
}

func TestSQLiteStorage_UpdateStudentProfile(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, _ := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")

	occupation := "Trabaja"
	student.WorkOccupation = &occupation
	if err := store.UpdateStudentProfile(ctx, student); err != nil {
		t.Fatalf("UpdateStudentProfile failed: %v", err)
	}

	reloaded, err := store.GetStudentByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetStudentByID failed: %v", err)
	}
	if reloaded.WorkOccupation == nil || *reloaded.WorkOccupation != "Trabaja" {
		t.Errorf("Expected occupation Trabaja, got %v", reloaded.WorkOccupation)
	}

	missing := *student
	missing.ID = 999
	if err := store.UpdateStudentProfile(ctx, &missing); !errors.Is(err, common.ErrStudentNotFound) {
		t.Errorf("Expected ErrStudentNotFound, got %v", err)
	}
}

func TestSQLiteStorage_GetCohortGroup(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	group, _ := seedCatalog(t, store)

	loaded, err := store.GetCohortGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GetCohortGroup failed: %v", err)
	}
	if loaded.Track == nil || loaded.Track.Name != "Tecnologicas" {
		t.Errorf("Expected track Tecnologicas, got %v", loaded.Track)
	}
	if loaded.Term == nil || loaded.Term.Name != "First Semester 2026" {
		t.Errorf("Expected term First Semester 2026, got %v", loaded.Term)
	}

	if _, err := store.GetCohortGroup(context.Background(), 999); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
