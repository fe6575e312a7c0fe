package tui

import (
	"time"

	"github.com/Veraticus/deedscan/internal/tui/themes"
)

// DefaultPollInterval is how often the view reads the progress reporter.
const DefaultPollInterval = 200 * time.Millisecond

// Config holds TUI configuration.
type Config struct {
	Theme        themes.Theme
	Title        string
	PollInterval time.Duration
	Width        int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:        themes.Default,
		Title:        "deedscan",
		PollInterval: DefaultPollInterval,
		Width:        80,
	}
}

// WithTheme sets the theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithTitle sets the heading shown above the progress bar.
func WithTitle(title string) Option {
	return func(c *Config) {
		c.Title = title
	}
}

// WithPollInterval sets how often progress is read.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithWidth sets the initial terminal width.
func WithWidth(width int) Option {
	return func(c *Config) {
		c.Width = width
	}
}
