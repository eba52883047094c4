package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.PrimaryColor).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3A3F58"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(cli.SubtleColor)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1).
			MarginTop(1)
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	switch m.state {
	case StateError:
		return m.renderError()
	case StateNote:
		return m.renderNote()
	case StateList:
	}
	return m.renderList()
}

func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Render("Loading alerts..."),
		mutedStyle.Render("Reading open alerts from the database"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s Open Alerts (%d)", cli.AlertIcon, len(m.alerts))))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString(mutedStyle.Render("No open alerts. Everything is quiet."))
		b.WriteString("\n")
	}

	for i, alert := range m.alerts {
		line := fmt.Sprintf("%-10s %-9s %-22s %s",
			alert.Type, alert.State, m.studentName(alert.StudentID), alert.Title)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if alert := m.selectedCopy(); alert != nil {
		b.WriteString(m.renderDetail(alert))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("↑/↓ move · v review · r resolve · d discard · Ctrl+L refresh · q quit"))

	return b.String()
}

func (m Model) renderDetail(alert *model.Alert) string {
	lines := []string{
		fmt.Sprintf("Student: %s", m.studentName(alert.StudentID)),
		fmt.Sprintf("Band: %s", cli.StyleBand(alert.Band)),
		alert.Description,
	}
	if alert.AbsenceStreak > 0 {
		lines = append(lines, fmt.Sprintf("Consecutive absences: %d", alert.AbsenceStreak))
	}
	lines = append(lines, mutedStyle.Render("Created "+alert.CreatedAt.Format("2006-01-02 15:04")))

	return detailStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderNote() string {
	action := "Resolve"
	if m.pendingTo == model.AlertDiscarded {
		action = "Discard"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s alert", action)))
	b.WriteString("\n")
	if alert := m.selectedCopy(); alert != nil {
		b.WriteString(alert.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(m.noteInput.View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("Enter confirm · Esc cancel"))

	return b.String()
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(cli.FormatError("Something went wrong"))
	b.WriteString("\n\n")
	if m.lastError != nil {
		b.WriteString(m.lastError.Error())
		b.WriteString("\n\n")
	}
	b.WriteString(mutedStyle.Render("Press any key to return"))

	return b.String()
}

func (m Model) studentName(studentID int64) string {
	if student, ok := m.students[studentID]; ok {
		return student.FullName()
	}
	return fmt.Sprintf("student #%d", studentID)
}

// selectedCopy is the View-side counterpart of selected; View has a value
// receiver so it cannot take the address of m.alerts through a pointer.
func (m Model) selectedCopy() *model.Alert {
	if m.cursor < 0 || m.cursor >= len(m.alerts) {
		return nil
	}
	alert := m.alerts[m.cursor]
	return &alert
}
