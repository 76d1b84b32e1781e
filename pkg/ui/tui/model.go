package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgharvest/pkg/orchestrator"
)

// Model represents the TUI model
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Run state
	page      string
	state     orchestrator.State
	percent   int
	items     []orchestrator.ItemEvent
	maxItems  int
	converted int
	skipped   int
	failed    int
	fallbacks int
	startTime time.Time
	result    *orchestrator.Result
	runErr    error
	done      bool

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for a run against page
func NewModel(page string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:        s,
		progress:       p,
		page:           page,
		state:          orchestrator.StateIdle,
		maxItems:       8,
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// State returns the last reported run state
func (m *Model) State() orchestrator.State {
	return m.state
}

// Percent returns the last reported progress
func (m *Model) Percent() int {
	return m.percent
}

// Done reports whether the run has finished
func (m *Model) Done() bool {
	return m.done
}

func (m *Model) setState(to orchestrator.State) {
	m.state = to
	if to == orchestrator.StateScanning {
		m.percent, m.converted, m.skipped, m.failed, m.fallbacks = 0, 0, 0, 0, 0
		m.items = nil
		m.startTime = time.Now()
	}
	m.AddLogMessage("INFO", "Stage: "+string(to))
}

func (m *Model) addItem(ev orchestrator.ItemEvent) {
	switch ev.Status {
	case orchestrator.ItemConverted:
		m.converted++
		if ev.Fallback {
			m.fallbacks++
		}
	case orchestrator.ItemSkipped:
		m.skipped++
	case orchestrator.ItemFailed:
		m.failed++
	}

	m.items = append(m.items, ev)
	if len(m.items) > m.maxItems {
		m.items = m.items[len(m.items)-m.maxItems:]
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}
