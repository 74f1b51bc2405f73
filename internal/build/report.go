package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/compress"
)

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every stage completed.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates at least one stage failed.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build context was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}

// StageResult is the outcome of a single stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the stage returned an error.
func (r StageResult) Failed() bool {
	return r.Error != ""
}

// Report describes a finished build. It is handed to every Observer.
type Report struct {
	ID         string           `json:"id"`
	Status     BuildStatus      `json:"status"`
	Production bool             `json:"production"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Duration   time.Duration    `json:"duration"`
	Pages      int              `json:"pages"`
	Stages     []StageResult    `json:"stages"`
	Compressed compress.Summary `json:"compressed"`
	Error      string           `json:"error,omitempty"`
}

// Stage returns the result recorded for name.
func (r *Report) Stage(name string) (StageResult, bool) {
	for _, st := range r.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageResult{}, false
}

// FailedStages lists the names of the stages that failed, in run order.
func (r *Report) FailedStages() []string {
	var names []string
	for _, st := range r.Stages {
		if st.Failed() {
			names = append(names, st.Name)
		}
	}
	return names
}

// Observer is notified after every full build, successful or not. Observers
// run synchronously on the building goroutine and must not block for long;
// their own failures are theirs to log.
type Observer interface {
	BuildCompleted(ctx context.Context, report *Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, report *Report)

// BuildCompleted calls f.
func (f ObserverFunc) BuildCompleted(ctx context.Context, report *Report) {
	f(ctx, report)
}
