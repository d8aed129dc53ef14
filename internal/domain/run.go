package domain

import "time"

// WorkflowRun is a GitHub Actions run of the sync workflow.
type WorkflowRun struct {
	ID         int64
	Number     int
	Event      string
	Status     string
	Conclusion string
	StartedAt  time.Time
	UpdatedAt  time.Time
	WebURL     string
}

// StatusCompleted is the run status once GitHub has a conclusion.
const StatusCompleted = "completed"

// IsCompleted returns true if the run is in a final state.
func (r WorkflowRun) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// Duration is the wall time between start and last update.
func (r WorkflowRun) Duration() time.Duration {
	return r.UpdatedAt.Sub(r.StartedAt)
}
