package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderae/atalaya/internal/model"
)

func loadedModel(t *testing.T, alerts []model.Alert) Model {
	t.Helper()
	m := newModel(defaultConfig())

	updated, _ := m.Update(alertsLoadedMsg{
		alerts: alerts,
		students: map[int64]*model.Student{
			1: {ID: 1, FirstName: "Ana", LastName: "Rojas"},
		},
	})
	loaded, ok := updated.(Model)
	require.True(t, ok)
	return loaded
}

func testAlerts() []model.Alert {
	return []model.Alert{
		{
			ID:          10,
			Type:        model.AlertEarly,
			Band:        model.BandHigh,
			State:       model.AlertActive,
			StudentID:   1,
			Title:       "High dropout risk (62%)",
			Description: "The predictive model estimates a 62.0% probability of dropout (High band).",
			CreatedAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        11,
			Type:      model.AlertDropoutRisk,
			Band:      model.BandCritical,
			State:     model.AlertInReview,
			StudentID: 2,
			Title:     "Possible dropout: 5 consecutive absences",
			CreatedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestUpdate_Navigation(t *testing.T) {
	m := loadedModel(t, testAlerts())
	assert.Equal(t, 0, m.cursor)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)

	// Cursor clamps at the last alert.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	assert.Equal(t, 0, m.cursor)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestUpdate_LoadError(t *testing.T) {
	m := newModel(defaultConfig())

	updated, _ := m.Update(alertsLoadedMsg{err: errors.New("database locked")})
	m = updated.(Model)
	assert.Equal(t, StateError, m.state)

	// Any key returns to the list.
	updated, _ = m.Update(keyPress('x'))
	m = updated.(Model)
	assert.Equal(t, StateList, m.state)
	assert.Nil(t, m.lastError)
}

func TestUpdate_ResolveEntersNoteState(t *testing.T) {
	m := loadedModel(t, testAlerts())

	updated, cmd := m.Update(keyPress('r'))
	m = updated.(Model)
	assert.Equal(t, StateNote, m.state)
	assert.Equal(t, model.AlertResolved, m.pendingTo)
	assert.NotNil(t, cmd, "entering the note state focuses the input")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, StateList, m.state)
}

func TestUpdate_DiscardEntersNoteState(t *testing.T) {
	m := loadedModel(t, testAlerts())

	updated, _ := m.Update(keyPress('d'))
	m = updated.(Model)
	assert.Equal(t, StateNote, m.state)
	assert.Equal(t, model.AlertDiscarded, m.pendingTo)
}

func TestUpdate_Quit(t *testing.T) {
	m := loadedModel(t, testAlerts())

	updated, cmd := m.Update(keyPress('q'))
	m = updated.(Model)
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_List(t *testing.T) {
	m := loadedModel(t, testAlerts())
	m.width = 80
	m.height = 24

	view := m.View()
	assert.Contains(t, view, "Open Alerts (2)")
	assert.Contains(t, view, "High dropout risk (62%)")
	assert.Contains(t, view, "Ana Rojas")
	assert.Contains(t, view, "student #2", "unknown students fall back to their id")
	assert.Contains(t, view, "q quit")
}

func TestView_EmptyList(t *testing.T) {
	m := loadedModel(t, nil)

	view := m.View()
	assert.Contains(t, view, "Open Alerts (0)")
	assert.Contains(t, view, "No open alerts")
}

func TestView_LoadingBeforeFirstFetch(t *testing.T) {
	m := newModel(defaultConfig())

	assert.Contains(t, m.View(), "Loading alerts")
}

func TestView_Note(t *testing.T) {
	m := loadedModel(t, testAlerts())

	updated, _ := m.Update(keyPress('r'))
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "Resolve alert")
	assert.Contains(t, view, "High dropout risk (62%)")
	assert.Contains(t, view, "Enter confirm")
}
