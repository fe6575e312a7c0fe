// Package tui renders live extraction progress in the terminal.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/deedscan/internal/ingest"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/tui/themes"
)

// EventSource returns the latest progress event of a session.
type EventSource interface {
	Get(sessionID string) (model.ProgressEvent, bool)
}

// IngestFunc runs one extraction, publishing progress under sessionID.
type IngestFunc func(ctx context.Context, sessionID string) (*ingest.Result, error)

// Model holds the progress view state.
type Model struct {
	startTime time.Time
	err       error
	ctx       context.Context
	source    EventSource
	run       IngestFunc
	cancel    context.CancelFunc
	result    *ingest.Result
	spinner   spinner.Model
	bar       progress.Model
	sessionID string
	theme     themes.Theme
	config    Config
	keymap    KeyMap
	last      model.ProgressEvent
	width     int
	seen      bool
	done      bool
	canceled  bool
}

// newModel creates a model that runs fn and watches source for sessionID.
func newModel(ctx context.Context, source EventSource, sessionID string, fn IngestFunc, cfg Config) Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(cfg.Theme.Primary)

	bar := progress.New(progress.WithGradient(string(cfg.Theme.Primary), string(cfg.Theme.Secondary)))
	bar.Width = barWidth(cfg.Width)

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		source:    source,
		run:       fn,
		sessionID: sessionID,
		spinner:   s,
		bar:       bar,
		theme:     cfg.Theme,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		width:     cfg.Width,
		startTime: time.Now(),
	}
}

// Init starts the spinner, the poll loop, and the ingest run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), m.runIngest())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.ForceQuit):
			m.cancel()
			m.canceled = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Cancel):
			// The run returns promptly once its context is done; its
			// doneMsg ends the program.
			m.cancel()
			m.canceled = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case pollMsg:
		if m.done {
			return m, nil
		}
		if ev, ok := m.source.Get(m.sessionID); ok {
			m.last = ev
			m.seen = true
		}
		return m, m.poll()

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		if msg.err == nil {
			m.last = model.ProgressEvent{Step: model.StepComplete, Percent: 100, Message: "Done", Timestamp: time.Now()}
			m.seen = true
		}
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Result returns the ingest outcome once the run has finished.
func (m Model) Result() (*ingest.Result, error) {
	return m.result, m.err
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) runIngest() tea.Cmd {
	ctx, fn, id := m.ctx, m.run, m.sessionID
	return func() tea.Msg {
		result, err := fn(ctx, id)
		return doneMsg{result: result, err: err}
	}
}

func barWidth(total int) int {
	const padding = 8
	return max(min(total-padding, 72), 10)
}
