package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/orchestrator"
)

// StateMsg is sent when the run changes state
type StateMsg struct {
	From orchestrator.State
	To   orchestrator.State
}

// ProgressMsg carries the run percentage
type ProgressMsg struct {
	Percent int
}

// ItemMsg carries the outcome of one candidate
type ItemMsg struct {
	Event orchestrator.ItemEvent
}

// AlertMsg carries a user-facing alert
type AlertMsg struct {
	Text string
}

// DoneMsg is sent once the run has returned
type DoneMsg struct {
	Result *orchestrator.Result
	Err    error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(60, max(10, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateMsg:
		m.setState(msg.To)
		return m, nil

	case ProgressMsg:
		m.percent = msg.Percent
		return m, nil

	case ItemMsg:
		m.addItem(msg.Event)
		if msg.Event.Status == orchestrator.ItemFailed {
			m.AddLogMessage("WARN", fmt.Sprintf("Dropped #%d: %v", msg.Event.Index+1, msg.Event.Err))
		}
		return m, nil

	case AlertMsg:
		m.AddLogMessage("ERROR", msg.Text)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.runErr = msg.Err
		if msg.Err == nil && msg.Result != nil && msg.Result.Path != "" {
			m.AddLogMessage("SUCCESS", "Saved "+msg.Result.Path)
		}
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}
