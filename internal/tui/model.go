// Package tui provides the interactive alert review interface.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calderae/atalaya/internal/model"
)

// State represents the current state of the TUI.
type State int

const (
	StateList State = iota
	StateNote
	StateError
)

// Model holds the alert review TUI state.
type Model struct {
	students  map[int64]*model.Student
	lastError error
	noteInput textinput.Model
	config    Config
	keymap    KeyMap
	alerts    []model.Alert
	cursor    int
	height    int
	width     int
	state     State
	pendingTo model.AlertState
	quitting  bool
	ready     bool
}

// newModel creates a new model with the given configuration.
func newModel(cfg Config) Model {
	note := textinput.New()
	note.Placeholder = "resolution note (optional)"
	note.CharLimit = 280
	note.Width = 60

	return Model{
		state:     StateList,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		noteInput: note,
		students:  make(map[int64]*model.Student),
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		loadAlerts(m.config.Storage),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case alertsLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.state = StateError
			return m, nil
		}
		m.alerts = msg.alerts
		m.students = msg.students
		m.ready = true
		if m.cursor >= len(m.alerts) {
			m.cursor = 0
		}

	case transitionAppliedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.state = StateError
			return m, nil
		}
		m.state = StateList
		return m, loadAlerts(m.config.Storage)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case StateNote:
		return m.handleNoteKey(msg)
	case StateError:
		// Any key returns to the list.
		m.state = StateList
		m.lastError = nil
		return m, nil
	case StateList:
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.alerts)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.Refresh):
		return m, loadAlerts(m.config.Storage)

	case key.Matches(msg, m.keymap.Review):
		if alert := m.selected(); alert != nil && alert.State == model.AlertActive {
			return m, applyTransition(m.config, alert.ID, model.AlertInReview, nil)
		}

	case key.Matches(msg, m.keymap.Resolve):
		if alert := m.selected(); alert != nil && alert.State.Open() {
			return m.enterNote(model.AlertResolved)
		}

	case key.Matches(msg, m.keymap.Discard):
		if alert := m.selected(); alert != nil && alert.State.Open() {
			return m.enterNote(model.AlertDiscarded)
		}
	}

	return m, nil
}

func (m Model) handleNoteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.state = StateList
		m.noteInput.Blur()
		return m, nil

	case key.Matches(msg, m.keymap.Confirm):
		alert := m.selected()
		if alert == nil {
			m.state = StateList
			return m, nil
		}
		var note *string
		if text := m.noteInput.Value(); text != "" {
			note = &text
		}
		m.noteInput.Blur()
		return m, applyTransition(m.config, alert.ID, m.pendingTo, note)
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}

func (m Model) enterNote(to model.AlertState) (tea.Model, tea.Cmd) {
	m.state = StateNote
	m.pendingTo = to
	m.noteInput.SetValue("")
	return m, m.noteInput.Focus()
}

func (m *Model) selected() *model.Alert {
	if m.cursor < 0 || m.cursor >= len(m.alerts) {
		return nil
	}
	return &m.alerts[m.cursor]
}
