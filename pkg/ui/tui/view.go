package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"imgharvest/pkg/orchestrator"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		m.renderItems(),
		m.renderLogs(),
	}

	if m.done {
		sections = append(sections, m.renderSummary())
	} else if m.showHelp {
		sections = append(sections, helpStyle.Render("q quit • ? toggle help • ctrl+l clear log"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	return headerStyle.Render("imgharvest • " + m.page)
}

func (m *Model) renderProgress() string {
	indicator := m.spinner.View()
	if m.state.Terminal() {
		indicator = " "
	}

	status := fmt.Sprintf("%s %s %s",
		indicator,
		statsLabelStyle.Render("Stage:"),
		StateStyle(m.state).Render(string(m.state)),
	)
	bar := fmt.Sprintf("%s %3d%%", m.progress.ViewAs(float64(m.percent)/100), m.percent)

	stats := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Converted:"), statsValueStyle.Render(fmt.Sprint(m.converted)),
		statsLabelStyle.Render("Skipped:"), statsValueStyle.Render(fmt.Sprint(m.skipped)),
		statsLabelStyle.Render("Failed:"), statsValueStyle.Render(fmt.Sprint(m.failed)),
		statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(time.Since(m.startTime))),
	)

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, status, bar, stats))
}

func (m *Model) renderItems() string {
	title := titleStyle.Render(" CANDIDATES ")
	if len(m.items) == 0 {
		return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Waiting for candidates...")))
	}

	lines := []string{title}
	for _, ev := range m.items {
		lines = append(lines, m.renderItem(ev))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderItem(ev orchestrator.ItemEvent) string {
	style := ItemStyle(ev.Status)
	prefix := fmt.Sprintf("%d/%d", ev.Index+1, ev.Total)

	switch ev.Status {
	case orchestrator.ItemConverted:
		line := style.Render("✓ "+ev.Name) + " " + dimStyle.Render(prefix)
		if ev.Fallback {
			line += " " + dimStyle.Render("fallback")
		}
		return line
	case orchestrator.ItemSkipped:
		return style.Render("- "+truncate(ev.URL, m.width-20)) + " " + dimStyle.Render(prefix)
	default:
		return style.Render("✗ "+truncate(ev.URL, m.width-20)) + " " + dimStyle.Render(prefix)
	}
}

func (m *Model) renderLogs() string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 6
	if start < 0 {
		start = 0
	}

	lines := []string{title}
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		lines = append(lines, fmt.Sprintf("%s %s %s", timestamp, level, dimStyle.Render(truncate(log.Message, m.width-25))))
	}
	if len(lines) == 1 {
		lines = append(lines, dimStyle.Render("No logs yet..."))
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderSummary() string {
	switch {
	case m.runErr != nil:
		return errorStyle.Render("Run failed: " + m.runErr.Error())
	case m.result == nil:
		return ""
	case m.result.State == orchestrator.StateEmpty:
		return warningStyle.Render(orchestrator.AlertNoImages)
	default:
		return successStyle.Render(fmt.Sprintf("Saved %d images to %s", len(m.result.Entries), m.result.Path))
	}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
