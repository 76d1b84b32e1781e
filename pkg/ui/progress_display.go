package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"imgharvest/pkg/orchestrator"
)

// ProgressDisplay renders orchestrator events as a single progress line
type ProgressDisplay struct {
	mu        sync.Mutex
	page      string
	state     orchestrator.State
	percent   int
	converted int
	skipped   int
	failed    int
	current   string
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay creates a progress display for one page
func NewProgressDisplay(page string, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		page:      page,
		state:     orchestrator.StateIdle,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// OnState prints stage changes in debug mode and resets the line on a new run
func (p *ProgressDisplay) OnState(from, to orchestrator.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = to
	if to == orchestrator.StateScanning {
		p.percent, p.converted, p.skipped, p.failed = 0, 0, 0, 0
		p.startTime = time.Now()
	}
	if p.isDebug {
		printf(false, "%s %s -> %s\n", Magenta("→"), from, to)
	}
}

// OnProgress redraws the progress line
func (p *ProgressDisplay) OnProgress(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.percent = percent
	if !p.isDebug {
		p.printProgress()
	}
}

// OnItem records the outcome of one candidate
func (p *ProgressDisplay) OnItem(ev orchestrator.ItemEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Status {
	case orchestrator.ItemConverted:
		p.converted++
		p.current = ev.Name
	case orchestrator.ItemSkipped:
		p.skipped++
	case orchestrator.ItemFailed:
		p.failed++
	}

	if !p.isDebug {
		return
	}
	switch ev.Status {
	case orchestrator.ItemConverted:
		line := fmt.Sprintf("%s %s", Green("✓"), ev.Name)
		if ev.Fallback {
			line += " " + Dim("(image fallback)")
		}
		printf(false, "%s\n", line)
	case orchestrator.ItemSkipped:
		printf(false, "%s %s\n", Dim("-"), Dim(ev.URL))
	case orchestrator.ItemFailed:
		printf(false, "%s %s - %v\n", Red("✗"), ev.URL, ev.Err)
	}
}

// OnAlert prints the alert on its own line
func (p *ProgressDisplay) OnAlert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.percent > 0 && !p.isDebug {
		printf(true, "\n")
	}
	Alert(msg)
}

// printProgress prints the minimal progress line
func (p *ProgressDisplay) printProgress() {
	line := fmt.Sprintf("\r%s [%s] %3d%% • %d converted",
		Cyan(p.page),
		RenderBar(p.percent, barWidth),
		p.percent,
		p.converted,
	)
	if p.skipped > 0 {
		line += fmt.Sprintf(" • %d skipped", p.skipped)
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}
	if p.current != "" {
		line += " • " + Dim(p.current)
	}

	printf(false, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete prints the run summary
func (p *ProgressDisplay) Complete(res *orchestrator.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res == nil || res.State != orchestrator.StateIdle {
		return
	}

	printf(false, "\n\n%s Saved %d images from %s\n", Green("✓"), len(res.Entries), p.page)
	printf(false, "  %s %s (%s)\n", Dim("•"), res.Path, FormatBytes(res.Size))
	printf(false, "  %s %d found, %d converted in %s\n",
		Dim("•"),
		res.Stats.Found,
		res.Stats.Converted,
		FormatDuration(res.Duration),
	)
	if res.Stats.Skipped > 0 {
		printf(false, "  %s %d vector images skipped\n", Dim("•"), res.Stats.Skipped)
	}
	if res.Stats.Failed > 0 {
		printf(false, "  %s %d candidates failed\n", Dim("•"), res.Stats.Failed)
	}
}
