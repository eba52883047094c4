package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the alert review interface and blocks until the user quits.
func Run(ctx context.Context, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Storage == nil {
		return fmt.Errorf("storage is required")
	}
	if cfg.Alerts == nil {
		return fmt.Errorf("alert engine is required")
	}
	if cfg.Reviewer == "" {
		cfg.Reviewer = "reviewer"
	}

	program := tea.NewProgram(newModel(cfg), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("alert review interface failed: %w", err)
	}

	return nil
}
