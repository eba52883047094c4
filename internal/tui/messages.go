package tui

import "github.com/calderae/atalaya/internal/model"

// Data loading messages.
type alertsLoadedMsg struct {
	err      error
	alerts   []model.Alert
	students map[int64]*model.Student
}

// Async operation messages.
type transitionAppliedMsg struct {
	err   error
	alert *model.Alert
}
