package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/deedscan/internal/model"
)

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render(m.config.Title))
	b.WriteString("\n")

	switch {
	case m.done:
		b.WriteString(m.renderSummary())
	case !m.seen:
		b.WriteString(m.spinner.View() + " " + m.theme.StatusPending.Render("Starting..."))
	default:
		b.WriteString(m.renderProgress())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())

	return m.theme.RoundedBox.Render(b.String())
}

func (m Model) renderProgress() string {
	step := m.theme.StatusInfo.Render(stepLabel(m.last.Step))
	if m.last.Step == model.StepWaiting {
		step = m.theme.StatusWarning.Render(stepLabel(m.last.Step))
	}

	lines := []string{
		m.spinner.View() + " " + step + "  " + m.theme.Subtitle.Render(fmt.Sprintf("%d%%", m.last.Percent)),
		m.bar.ViewAs(float64(m.last.Percent) / 100),
	}
	if m.last.Message != "" {
		lines = append(lines, m.theme.Normal.Render(m.last.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderSummary() string {
	if m.err != nil {
		if m.canceled {
			return m.theme.StatusWarning.Render("Canceled")
		}
		return m.theme.StatusError.Render("Failed: ") + m.theme.Normal.Render(m.err.Error())
	}
	if m.result == nil {
		return m.theme.StatusPending.Render("No result")
	}

	r := m.result
	status := m.theme.StatusSuccess.Render("✓ " + r.Message)
	if !r.Success {
		status = m.theme.StatusWarning.Render(r.Message)
	}

	rows := []string{
		status,
		m.bar.ViewAs(1),
		fmt.Sprintf("%s %d", m.theme.Bold.Render("Extracted:"), r.TotalExtracted),
		fmt.Sprintf("%s %d", m.theme.Bold.Render("Matched:  "), r.TotalFiltered),
		fmt.Sprintf("%s %d", m.theme.Bold.Render("Saved:    "), r.TotalInserted),
	}
	if r.Cached {
		rows = append(rows, m.theme.Subtitle.Render("(from cache)"))
	}
	if q := r.DataQuality; q != nil && q.Total > 0 {
		rows = append(rows, m.theme.Subtitle.Render(fmt.Sprintf(
			"Data quality: %s (%d%% complete)", q.Quality, q.Completeness)))
		for _, w := range q.Warnings {
			rows = append(rows, m.theme.StatusWarning.Render("! ")+m.theme.Normal.Render(w))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderStatusBar() string {
	elapsed := time.Since(m.startTime).Truncate(time.Second)
	left := m.theme.Subtitle.Render(elapsed.String())
	if m.done {
		return left
	}
	help := m.theme.Subtitle.Render(m.keymap.Cancel.Help().Key + " " + m.keymap.Cancel.Help().Desc)
	return left + "  " + help
}

func stepLabel(s model.Step) string {
	switch s {
	case model.StepParsing:
		return "Reading document"
	case model.StepAnalyzing:
		return "Analyzing"
	case model.StepExtracting:
		return "Extracting"
	case model.StepProcessing:
		return "Processing"
	case model.StepWaiting:
		return "Rate limited"
	case model.StepComplete:
		return "Complete"
	default:
		return string(s)
	}
}
