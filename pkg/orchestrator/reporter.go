package orchestrator

// ItemStatus is the outcome of one candidate
type ItemStatus string

const (
	ItemConverted ItemStatus = "converted"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
)

// ItemEvent describes a processed candidate
type ItemEvent struct {
	Index  int
	Total  int
	URL    string
	Status ItemStatus
	// Name is the archive entry name, set for converted items
	Name     string
	Fallback bool
	Err      error
}

// Reporter observes a run. Calls come from the run's goroutine, in order.
type Reporter interface {
	OnState(from, to State)
	OnProgress(percent int)
	OnItem(ev ItemEvent)
	// OnAlert delivers a message meant for the user
	OnAlert(message string)
}

// NopReporter ignores every event
type NopReporter struct{}

func (NopReporter) OnState(from, to State) {}
func (NopReporter) OnProgress(percent int) {}
func (NopReporter) OnItem(ev ItemEvent)    {}
func (NopReporter) OnAlert(message string) {}

// Percent returns round(100*done/total), rounding halves up
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return (200*done + total) / (2 * total)
}
