package core

import (
	"fmt"
	"time"
)

// Execution is the handle of one remote pipeline run. ID, URL and TimeStart
// are fixed once assigned; Status changes with every poll.
type Execution struct {
	ID        string
	Name      string
	URL       string
	Status    string
	TimeStart time.Time

	// lastSeen is the time of the most recent status observation.
	lastSeen time.Time
}

// NewExecution creates a handle observed to start at the given time.
func NewExecution(id, name, url, status string, start time.Time) *Execution {
	return &Execution{
		ID:        id,
		Name:      name,
		URL:       url,
		Status:    status,
		TimeStart: start,
		lastSeen:  start,
	}
}

// Category returns the canonical category of the current status.
func (e *Execution) Category() Category {
	return Classify(e.Status)
}

// IsTerminal reports whether the run has left IN_PROGRESS.
func (e *Execution) IsTerminal() bool {
	return e.Category().IsTerminal()
}

// Observe records a freshly read status. Once the run is terminal further
// observations are ignored so the handle stays immutable.
func (e *Execution) Observe(status string, at time.Time) {
	if e.IsTerminal() && e.Category() != CategoryUnknown {
		return
	}
	e.Status = status
	if at.After(e.lastSeen) {
		e.lastSeen = at
	}
}

// Duration is the span between the start and the last status observation.
func (e *Execution) Duration() time.Duration {
	if e.lastSeen.Before(e.TimeStart) {
		return 0
	}
	return e.lastSeen.Sub(e.TimeStart)
}

// DurationString formats Duration rounded to whole seconds.
func (e *Execution) DurationString() string {
	return e.Duration().Round(time.Second).String()
}

// String returns a short description for logs.
func (e *Execution) String() string {
	return fmt.Sprintf("run %s (%s) status=%s", e.ID, e.Name, e.Status)
}
