package operations

import (
	"context"
	"time"
)

// Step is one named unit of the dataset build
type Step struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// NewStep creates a step
func NewStep(id, name string, run func(ctx context.Context) error) Step {
	return Step{ID: id, Name: name, Run: run}
}

// StepStatus represents the outcome of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult records how a step ended
type StepResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    error         `json:"error,omitempty"`
}

// Failed returns the first failed result, if any
func Failed(results []StepResult) (StepResult, bool) {
	for _, r := range results {
		if r.Status == StepStatusFailed {
			return r, true
		}
	}
	return StepResult{}, false
}
