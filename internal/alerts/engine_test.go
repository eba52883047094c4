package alerts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
	"github.com/calderae/atalaya/internal/storage"
)

func bandPtr(b model.RiskBand) *model.RiskBand { return &b }

type fixture struct {
	engine  *Engine
	store   *storage.SQLiteStorage
	student *model.Student
	subject *model.Subject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	track, err := store.CreateTrack(ctx, "Tecnologicas")
	require.NoError(t, err)
	term, err := store.CreateTerm(ctx, "First Semester 2026")
	require.NoError(t, err)
	group, err := store.CreateCohortGroup(ctx, "Group A", track.ID, &term.ID)
	require.NoError(t, err)
	subject, err := store.CreateSubject(ctx, "MAT-101", "Mathematics")
	require.NoError(t, err)

	student := &model.Student{
		Code:          "A-1",
		FirstName:     "Ana",
		LastName:      "Rojas",
		CohortGroupID: group.ID,
	}
	require.NoError(t, store.CreateStudent(ctx, student))

	return &fixture{
		engine:  NewEngine(store),
		store:   store,
		student: student,
		subject: subject,
	}
}

func (f *fixture) saveScore(t *testing.T, probability float64, band model.RiskBand) *model.RiskScore {
	t.Helper()
	score := &model.RiskScore{
		StudentID:    f.student.ID,
		Probability:  probability,
		Band:         band,
		Label:        model.LabelContinues,
		ScoreDate:    time.Now(),
		Kind:         model.ScoreIndividual,
		Features:     model.FeatureRecord{},
		ModelVersion: "2026.1",
		VariantTag:   "label",
	}
	require.NoError(t, f.store.SaveRiskScore(context.Background(), score))
	return score
}

func (f *fixture) markAbsences(t *testing.T, statuses ...model.AttendanceStatus) {
	t.Helper()
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	for i, status := range statuses {
		mark := &model.AttendanceMark{
			StudentID:  f.student.ID,
			SubjectID:  f.subject.ID,
			Date:       base.AddDate(0, 0, i),
			Status:     status,
			RecordedBy: "test",
		}
		require.NoError(t, f.store.SaveAttendanceMark(context.Background(), mark))
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.AttendanceStatus
		want     int
	}{
		{
			name:     "no marks",
			statuses: nil,
			want:     0,
		},
		{
			name: "trailing absences only",
			statuses: []model.AttendanceStatus{
				model.AttendanceAbsent,
				model.AttendanceAbsent,
				model.AttendanceExcused,
				model.AttendanceAbsent,
				model.AttendanceAbsent,
			},
			want: 2,
		},
		{
			name: "excused breaks the streak",
			statuses: []model.AttendanceStatus{
				model.AttendanceAbsent,
				model.AttendanceAbsent,
				model.AttendanceExcused,
			},
			want: 0,
		},
		{
			name: "all absent",
			statuses: []model.AttendanceStatus{
				model.AttendanceAbsent,
				model.AttendanceAbsent,
				model.AttendanceAbsent,
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.markAbsences(t, tt.statuses...)

			streak, err := f.engine.Streak(context.Background(), f.student.ID, f.subject.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, streak)
		})
	}
}

func TestHandleRiskScore_HighBandOpensEarlyAlert(t *testing.T) {
	f := newFixture(t)
	score := f.saveScore(t, 0.62, model.BandHigh)

	alert, err := f.engine.HandleRiskScore(context.Background(), score)
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, model.AlertEarly, alert.Type)
	assert.Equal(t, model.BandHigh, alert.Band)
	assert.Equal(t, model.AlertActive, alert.State)
	assert.Equal(t, f.student.ID, alert.StudentID)
	require.NotNil(t, alert.RiskScoreID)
	assert.Equal(t, score.ID, *alert.RiskScoreID)
	assert.Contains(t, alert.Title, "High")
}

func TestHandleRiskScore_LowBandAutoResolvesOpenAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	high := f.saveScore(t, 0.62, model.BandHigh)
	opened, err := f.engine.HandleRiskScore(ctx, high)
	require.NoError(t, err)
	require.NotNil(t, opened)

	low := f.saveScore(t, 0.25, model.BandLow)
	alert, err := f.engine.HandleRiskScore(ctx, low)
	require.NoError(t, err)
	assert.Nil(t, alert, "improving bands must not open alerts")

	resolved, err := f.store.GetAlertByID(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertResolved, resolved.State)
	assert.Nil(t, resolved.ResolvedBy, "auto-resolution has no human actor")
	require.NotNil(t, resolved.ResolutionNote)
	assert.Contains(t, *resolved.ResolutionNote, "High")
	assert.Contains(t, *resolved.ResolutionNote, "Low")
	assert.Contains(t, *resolved.ResolutionNote, "25.0%")
}

func TestHandleRiskScore_MediumBandLeavesNoAlert(t *testing.T) {
	f := newFixture(t)
	score := f.saveScore(t, 0.42, model.BandMedium)

	alert, err := f.engine.HandleRiskScore(context.Background(), score)
	require.NoError(t, err)
	assert.Nil(t, alert)

	open, err := f.store.GetOpenAlerts(context.Background(), f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestHandleAttendance_Escalation(t *testing.T) {
	absences := func(n int) []model.AttendanceStatus {
		out := make([]model.AttendanceStatus, n)
		for i := range out {
			out[i] = model.AttendanceAbsent
		}
		return out
	}

	tests := []struct {
		name     string
		statuses []model.AttendanceStatus
		band     *model.RiskBand
		wantType model.AlertType
		wantNil  bool
	}{
		{
			name:     "short streak never alerts",
			statuses: absences(2),
			band:     bandPtr(model.BandCritical),
			wantNil:  true,
		},
		{
			name:     "moderate streak with low band stays quiet",
			statuses: absences(3),
			band:     bandPtr(model.BandLow),
			wantNil:  true,
		},
		{
			name:     "moderate streak without any score stays quiet",
			statuses: absences(4),
			wantNil:  true,
		},
		{
			name:     "moderate streak with high band escalates",
			statuses: absences(3),
			band:     bandPtr(model.BandHigh),
			wantType: model.AlertCritical,
		},
		{
			name:     "long streak alerts regardless of band",
			statuses: absences(5),
			band:     bandPtr(model.BandLow),
			wantType: model.AlertDropoutRisk,
		},
		{
			name:     "long streak alerts with no score at all",
			statuses: absences(6),
			wantType: model.AlertDropoutRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.band != nil {
				f.saveScore(t, 0.5, *tt.band)
			}
			f.markAbsences(t, tt.statuses...)

			alert, err := f.engine.HandleAttendance(context.Background(), f.student.ID, f.subject.ID)
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.wantType, alert.Type)
			assert.Equal(t, model.AlertActive, alert.State)
			assert.Equal(t, len(tt.statuses), alert.AbsenceStreak)
			require.NotNil(t, alert.SubjectID)
			assert.Equal(t, f.subject.ID, *alert.SubjectID)
			if tt.wantType == model.AlertDropoutRisk {
				assert.Equal(t, model.BandCritical, alert.Band)
			}
		})
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	score := f.saveScore(t, 0.72, model.BandCritical)
	alert, err := f.engine.HandleRiskScore(ctx, score)
	require.NoError(t, err)
	require.NotNil(t, alert)

	reviewed, err := f.engine.Transition(ctx, alert.ID, model.AlertInReview, "counselor", nil)
	require.NoError(t, err)
	assert.Equal(t, model.AlertInReview, reviewed.State)
	assert.Nil(t, reviewed.ResolvedAt, "review is not terminal")

	note := "Intervention plan agreed"
	resolved, err := f.engine.Transition(ctx, alert.ID, model.AlertResolved, "counselor", &note)
	require.NoError(t, err)
	assert.Equal(t, model.AlertResolved, resolved.State)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "counselor", *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolutionNote)
	assert.Equal(t, note, *resolved.ResolutionNote)
}

func TestTransition_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	score := f.saveScore(t, 0.72, model.BandCritical)
	alert, err := f.engine.HandleRiskScore(ctx, score)
	require.NoError(t, err)
	require.NotNil(t, alert)

	_, err = f.engine.Transition(ctx, alert.ID, model.AlertActive, "counselor", nil)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = f.engine.Transition(ctx, alert.ID, "SNOOZED", "counselor", nil)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = f.engine.Transition(ctx, alert.ID, model.AlertInReview, "counselor", nil)
	require.NoError(t, err)
	_, err = f.engine.Transition(ctx, alert.ID, model.AlertInReview, "counselor", nil)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = f.engine.Transition(ctx, alert.ID, model.AlertDiscarded, "counselor", nil)
	require.NoError(t, err)
	_, err = f.engine.Transition(ctx, alert.ID, model.AlertResolved, "counselor", nil)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = f.engine.Transition(ctx, 999, model.AlertResolved, "counselor", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordAction_AttachesToLatestScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.saveScore(t, 0.35, model.BandMedium)
	latest := f.saveScore(t, 0.72, model.BandCritical)

	action, err := f.engine.RecordAction(ctx, f.student.ID,
		"Interview with the counseling office", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), "tutor p.gomez")
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, latest.ID, action.RiskScoreID)
	assert.NotZero(t, action.ID)

	saved, err := f.store.GetActions(ctx, service.ActionFilter{StudentID: &f.student.ID})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Interview with the counseling office", saved[0].Description)
	assert.Equal(t, "tutor p.gomez", saved[0].RecordedBy)
	assert.Equal(t, latest.ID, saved[0].RiskScoreID)
}

func TestRecordAction_RequiresAScore(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RecordAction(context.Background(), f.student.ID,
		"Academic tutoring", time.Now(), "tutor p.gomez")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
