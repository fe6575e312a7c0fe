package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/deedscan/internal/ingest"
)

// RunConfig describes one ingest to display.
type RunConfig struct {
	Source    EventSource
	Ingest    IngestFunc
	Input     io.Reader
	Output    io.Writer
	SessionID string
}

// Run executes cfg.Ingest while rendering its progress and returns the
// ingest outcome. Canceling from the keyboard cancels the ingest context.
func Run(ctx context.Context, cfg RunConfig, opts ...Option) (*ingest.Result, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("progress source is required")
	}
	if cfg.Ingest == nil {
		return nil, fmt.Errorf("ingest function is required")
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}

	m := newModel(ctx, cfg.Source, cfg.SessionID, cfg.Ingest, c)
	defer m.cancel()

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		programOpts = append(programOpts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(cfg.Output))
	}

	final, err := tea.NewProgram(m, programOpts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("progress view failed: %w", err)
	}

	fm, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if !fm.done {
		return nil, context.Canceled
	}
	return fm.Result()
}
