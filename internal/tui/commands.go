package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

const commandTimeout = 10 * time.Second

// loadAlerts fetches all open alerts plus the students they belong to.
func loadAlerts(storage service.Storage) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		all, err := storage.GetAlerts(ctx, service.AlertFilter{})
		if err != nil {
			return alertsLoadedMsg{err: err}
		}

		open := make([]model.Alert, 0, len(all))
		for _, alert := range all {
			if alert.State.Open() {
				open = append(open, alert)
			}
		}

		students := make(map[int64]*model.Student, len(open))
		for _, alert := range open {
			if _, ok := students[alert.StudentID]; ok {
				continue
			}
			student, studentErr := storage.GetStudentByID(ctx, alert.StudentID)
			if studentErr != nil {
				return alertsLoadedMsg{err: studentErr}
			}
			students[alert.StudentID] = student
		}

		return alertsLoadedMsg{alerts: open, students: students}
	}
}

// applyTransition moves an alert to a new lifecycle state.
func applyTransition(cfg Config, alertID int64, to model.AlertState, note *string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		alert, err := cfg.Alerts.Transition(ctx, alertID, to, cfg.Reviewer, note)
		return transitionAppliedMsg{alert: alert, err: err}
	}
}
