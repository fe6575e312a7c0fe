package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/deedscan/internal/ingest"
	"github.com/Veraticus/deedscan/internal/model"
)

type fakeSource struct {
	events map[string]model.ProgressEvent
	mu     sync.Mutex
}

func (f *fakeSource) Get(id string) (model.ProgressEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	return ev, ok
}

func newTestModel(t *testing.T, src EventSource, fn IngestFunc) Model {
	t.Helper()
	if fn == nil {
		fn = func(context.Context, string) (*ingest.Result, error) { return nil, nil }
	}
	m := newModel(context.Background(), src, "session-1", fn, defaultConfig())
	t.Cleanup(m.cancel)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_PollReadsLatestEvent(t *testing.T) {
	src := &fakeSource{events: map[string]model.ProgressEvent{
		"session-1": {Step: model.StepExtracting, Percent: 42, Message: "Processing segment 2 of 4"},
	}}
	m := newTestModel(t, src, nil)

	m, cmd := update(t, m, pollMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.True(t, m.seen)
	assert.Equal(t, 42, m.last.Percent)

	view := m.View()
	assert.Contains(t, view, "Extracting")
	assert.Contains(t, view, "Processing segment 2 of 4")
}

func TestModel_PollWithoutEvent(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	m, _ = update(t, m, pollMsg(time.Now()))
	assert.False(t, m.seen)
	assert.Contains(t, m.View(), "Starting...")
}

func TestModel_DoneQuits(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	result := &ingest.Result{
		Success:        true,
		Message:        "Successfully processed 3 transactions",
		TotalExtracted: 3,
		TotalFiltered:  3,
		TotalInserted:  3,
	}
	m, cmd := update(t, m, doneMsg{result: result})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.done)
	assert.Equal(t, 100, m.last.Percent)

	got, err := m.Result()
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.Contains(t, m.View(), "Successfully processed 3 transactions")

	// Polls after completion stop the loop.
	_, cmd = update(t, m, pollMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestModel_DoneWithError(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	m, _ = update(t, m, doneMsg{err: errors.New("extraction failed")})
	_, err := m.Result()
	require.Error(t, err)
	assert.Contains(t, m.View(), "extraction failed")
}

func TestModel_CancelKey(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.True(t, m.canceled)
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)

	m, _ = update(t, m, doneMsg{err: context.Canceled})
	assert.Contains(t, m.View(), "Canceled")
}

func TestModel_ForceQuit(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Error(t, m.ctx.Err())
}

func TestModel_RunIngestPassesSession(t *testing.T) {
	var gotID string
	m := newTestModel(t, &fakeSource{}, func(_ context.Context, id string) (*ingest.Result, error) {
		gotID = id
		return &ingest.Result{Success: true}, nil
	})

	msg := m.runIngest()()
	done, ok := msg.(doneMsg)
	require.True(t, ok)
	assert.Equal(t, "session-1", gotID)
	assert.True(t, done.result.Success)
}

func TestModel_WindowResize(t *testing.T) {
	m := newTestModel(t, &fakeSource{}, nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Equal(t, 40, m.width)
	assert.Equal(t, 32, m.bar.Width)
}

func TestBarWidth(t *testing.T) {
	assert.Equal(t, 10, barWidth(5))
	assert.Equal(t, 42, barWidth(50))
	assert.Equal(t, 72, barWidth(300))
}

func TestStepLabel(t *testing.T) {
	assert.Equal(t, "Reading document", stepLabel(model.StepParsing))
	assert.Equal(t, "Rate limited", stepLabel(model.StepWaiting))
	assert.Equal(t, "custom", stepLabel(model.Step("custom")))
}

func TestRun_Validation(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{})
	require.Error(t, err)

	_, err = Run(context.Background(), RunConfig{Source: &fakeSource{}})
	require.Error(t, err)

	_, err = Run(context.Background(), RunConfig{
		Source: &fakeSource{},
		Ingest: func(context.Context, string) (*ingest.Result, error) { return nil, nil },
	})
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	c := defaultConfig()
	WithPollInterval(0)(&c)
	assert.Equal(t, DefaultPollInterval, c.PollInterval)
	WithPollInterval(time.Second)(&c)
	assert.Equal(t, time.Second, c.PollInterval)
	WithTitle("deed.pdf")(&c)
	assert.Equal(t, "deed.pdf", c.Title)
}
