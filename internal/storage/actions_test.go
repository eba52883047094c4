package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

func actionOn(scoreID int64, day time.Time, description string) *model.Action {
	return &model.Action{
		Date:        day,
		RiskScoreID: scoreID,
		Description: description,
		RecordedBy:  "test",
	}
}

func TestSQLiteStorage_SaveAction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, _ := seedCatalog(t, store)
	student := seedStudent(t, store, group.ID, "A-1")
	score := scoreOn(student.ID, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), 0.72, model.BandCritical)
	if err := store.SaveRiskScore(ctx, score); err != nil {
		t.Fatalf("SaveRiskScore failed: %v", err)
	}

	action := actionOn(score.ID, time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC), "Interview with the counseling office")
	if err := store.SaveAction(ctx, action); err != nil {
		t.Fatalf("SaveAction failed: %v", err)
	}
	if action.ID == 0 {
		t.Errorf("Expected action id to be set")
	}
	if !action.Date.Equal(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected date truncated to the day, got %v", action.Date)
	}

	actions, err := store.GetActions(ctx, service.ActionFilter{})
	if err != nil {
		t.Fatalf("GetActions failed: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	if actions[0].StudentID != student.ID {
		t.Errorf("Expected student %d from the attached score, got %d", student.ID, actions[0].StudentID)
	}
	if actions[0].Description != "Interview with the counseling office" {
		t.Errorf("Unexpected description %q", actions[0].Description)
	}
	if actions[0].RecordedBy != "test" {
		t.Errorf("Unexpected recorder %q", actions[0].RecordedBy)
	}
}

func TestSQLiteStorage_SaveAction_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	err := store.SaveAction(ctx, &model.Action{
		RiskScoreID: 1,
		Date:        time.Now(),
	})
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for missing description, got %v", err)
	}

	err = store.SaveAction(ctx, &model.Action{
		Description: "Tutoring",
		Date:        time.Now(),
	})
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for missing score, got %v", err)
	}

	err = store.SaveAction(ctx, nil)
	if !errors.Is(err, ErrNilParameter) {
		t.Errorf("Expected ErrNilParameter for nil action, got %v", err)
	}
}

func TestSQLiteStorage_GetActions_Filters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	group, _ := seedCatalog(t, store)
	first := seedStudent(t, store, group.ID, "A-1")
	second := seedStudent(t, store, group.ID, "A-2")

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	firstScore := scoreOn(first.ID, base, 0.72, model.BandCritical)
	secondScore := scoreOn(second.ID, base, 0.55, model.BandHigh)
	for _, score := range []*model.RiskScore{firstScore, secondScore} {
		if err := store.SaveRiskScore(ctx, score); err != nil {
			t.Fatalf("SaveRiskScore failed: %v", err)
		}
	}

	for i, action := range []*model.Action{
		actionOn(firstScore.ID, base.AddDate(0, 0, 1), "Academic tutoring"),
		actionOn(firstScore.ID, base.AddDate(0, 0, 3), "Counseling referral"),
		actionOn(secondScore.ID, base.AddDate(0, 0, 2), "Family meeting"),
	} {
		if err := store.SaveAction(ctx, action); err != nil {
			t.Fatalf("Save action %d failed: %v", i, err)
		}
	}

	actions, err := store.GetActions(ctx, service.ActionFilter{StudentID: &first.ID})
	if err != nil {
		t.Fatalf("GetActions by student failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("Expected 2 actions for the first student, got %d", len(actions))
	}
	if actions[0].Description != "Counseling referral" {
		t.Errorf("Expected most recent first, got %q", actions[0].Description)
	}

	actions, err = store.GetActions(ctx, service.ActionFilter{RiskScoreID: &secondScore.ID})
	if err != nil {
		t.Fatalf("GetActions by score failed: %v", err)
	}
	if len(actions) != 1 || actions[0].StudentID != second.ID {
		t.Errorf("Expected the second student's action, got %+v", actions)
	}

	actions, err = store.GetActions(ctx, service.ActionFilter{Limit: 2})
	if err != nil {
		t.Fatalf("GetActions with limit failed: %v", err)
	}
	if len(actions) != 2 {
		t.Errorf("Expected limit to cap at 2 actions, got %d", len(actions))
	}
}
