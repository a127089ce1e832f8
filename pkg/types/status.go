package types

import "fmt"

// Status is the processing state of a FileRecord
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusHashed     Status = "hashed"
	StatusClassified Status = "classified"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists the legal next states for each status.
// completed -> discovered starts a new ingestion cycle after a content change,
// failed -> discovered is the explicit retry.
var transitions = map[Status][]Status{
	StatusDiscovered: {StatusHashed, StatusFailed},
	StatusHashed:     {StatusClassified, StatusFailed},
	StatusClassified: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusDiscovered},
	StatusFailed:     {StatusDiscovered},
}

// Validate checks if the status is a known value
func (s Status) Validate() error {
	if _, ok := transitions[s]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return nil
}

// CanTransition reports whether moving from s to next is allowed
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends an ingestion pass
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Lifecycle walks a record through the state machine for one ingestion pass.
type Lifecycle struct {
	current Status
	visited []Status
}

// NewLifecycle starts a pass from the record's stored status. A record that
// ended its previous pass (completed or failed) re-enters at discovered.
func NewLifecycle(stored Status) *Lifecycle {
	l := &Lifecycle{current: stored}
	if stored == "" {
		l.current = StatusDiscovered
	}
	if l.current.Terminal() {
		l.current = StatusDiscovered
	}
	l.visited = []Status{l.current}
	return l
}

// Advance moves to next or returns ErrInvalidTransition
func (l *Lifecycle) Advance(next Status) error {
	if !l.current.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.current, next)
	}
	l.current = next
	l.visited = append(l.visited, next)
	return nil
}

// Fail moves to failed from any non-terminal state
func (l *Lifecycle) Fail() {
	if l.current == StatusFailed {
		return
	}
	if l.current.CanTransition(StatusFailed) {
		l.current = StatusFailed
		l.visited = append(l.visited, StatusFailed)
	}
}

// Current returns the state reached so far
func (l *Lifecycle) Current() Status {
	return l.current
}

// Visited returns every state entered during the pass, in order
func (l *Lifecycle) Visited() []Status {
	out := make([]Status, len(l.visited))
	copy(out, l.visited)
	return out
}
