package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/orchestrator"
)

// TUI is an orchestrator.Reporter backed by a bubbletea program
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI for a run against page
func NewTUI(page string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(page)
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until the run finishes or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) OnState(from, to orchestrator.State) { t.Send(StateMsg{From: from, To: to}) }
func (t *TUI) OnProgress(percent int)              { t.Send(ProgressMsg{Percent: percent}) }
func (t *TUI) OnItem(ev orchestrator.ItemEvent)    { t.Send(ItemMsg{Event: ev}) }
func (t *TUI) OnAlert(msg string)                  { t.Send(AlertMsg{Text: msg}) }

// Finish hands the run outcome to the program, which then exits
func (t *TUI) Finish(res *orchestrator.Result, err error) {
	t.Send(DoneMsg{Result: res, Err: err})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, message string) {
	t.Send(LogMsg{Level: level, Message: message})
}
