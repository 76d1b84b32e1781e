package downloader

// Sequencer restores index order to results that arrive out of order
type Sequencer struct {
	next    int
	pending map[int]Result
}

// NewSequencer creates a Sequencer expecting index first
func NewSequencer(first int) *Sequencer {
	return &Sequencer{next: first, pending: make(map[int]Result)}
}

// Push adds r and returns every result that is now ready, in index order
func (s *Sequencer) Push(r Result) []Result {
	s.pending[r.Job.Index] = r

	var ready []Result
	for {
		next, ok := s.pending[s.next]
		if !ok {
			return ready
		}
		delete(s.pending, s.next)
		ready = append(ready, next)
		s.next++
	}
}

// Pending returns the number of results held back waiting for an earlier index
func (s *Sequencer) Pending() int {
	return len(s.pending)
}
