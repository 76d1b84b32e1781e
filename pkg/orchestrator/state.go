package orchestrator

// State is the phase of a run
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateDownloading State = "downloading"
	StateArchiving   State = "archiving"
	StateSaving      State = "saving"
	// StateEmpty ends a run whose scan found nothing
	StateEmpty State = "empty"
	// StateError ends a run that failed
	StateError State = "error"
)

// transitions lists the legal successors of each state
var transitions = map[State][]State{
	StateIdle:        {StateScanning},
	StateScanning:    {StateDownloading, StateEmpty, StateError},
	StateDownloading: {StateArchiving, StateError},
	StateArchiving:   {StateSaving, StateError},
	StateSaving:      {StateIdle, StateError},
	StateEmpty:       {StateScanning},
	StateError:       {StateScanning},
}

// CanTransition reports whether a run may move from one state to another
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run
func (s State) Terminal() bool {
	return s == StateIdle || s == StateEmpty || s == StateError
}
