package tui

import (
	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/service"
)

// Config holds TUI configuration.
type Config struct {
	Storage  service.Storage
	Alerts   *alerts.Engine
	Reviewer string
	Width    int
	Height   int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Width:  80,
		Height: 24,
	}
}

// WithStorage sets the storage service.
func WithStorage(storage service.Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithAlertEngine sets the alert lifecycle engine.
func WithAlertEngine(engine *alerts.Engine) Option {
	return func(c *Config) {
		c.Alerts = engine
	}
}

// WithReviewer sets the name recorded on resolved and discarded alerts.
func WithReviewer(name string) Option {
	return func(c *Config) {
		c.Reviewer = name
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
