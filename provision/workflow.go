// Package provision prepares a checkout of the toolkit for running: it checks the Go
// toolchain and module proxy, creates the working directories, downloads dependencies into
// an isolated environment and verifies that the processing packages build.
package provision

import (
	"context"
	"time"
)

// Status of one executed step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Step is one unit of the workflow. A failing critical step stops the run; a failing
// non-critical step is reported as a warning. Steps are never retried.
type Step struct {
	Name     string
	Critical bool
	// Skip is consulted right before the step would run.
	Skip func(st *State) bool
	Run  func(ctx context.Context, st *State) (detail string, err error)
}

// StepResult records how a step ended.
type StepResult struct {
	Name     string
	Status   Status
	Detail   string
	Err      error
	Duration time.Duration
}

// Report is the outcome of a whole run.
type Report struct {
	Results []StepResult
	// Aborted names the critical step that stopped the run.
	Aborted string
}

func (r Report) OK() bool { return r.Aborted == "" }

// ExitCode is 0 on success and 1 when a critical step failed.
func (r Report) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Warnings returns the non-critical failures.
func (r Report) Warnings() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Status == StatusWarning {
			out = append(out, res)
		}
	}
	return out
}

// Workflow runs steps strictly in order.
type Workflow struct {
	Steps []Step
	// Observer, when set, sees every result as soon as the step ends.
	Observer func(StepResult)
}

// Run executes the steps against st. A cancelled context fails the current step.
func (w *Workflow) Run(ctx context.Context, st *State) Report {
	var rep Report
	for _, step := range w.Steps {
		res := StepResult{Name: step.Name}
		switch {
		case step.Skip != nil && step.Skip(st):
			res.Status = StatusSkipped
		default:
			start := time.Now()
			detail, err := runStep(ctx, step, st)
			res.Duration = time.Since(start)
			res.Detail = detail
			res.Err = err
			switch {
			case err == nil:
				res.Status = StatusOK
			case step.Critical:
				res.Status = StatusFailed
			default:
				res.Status = StatusWarning
			}
		}

		rep.Results = append(rep.Results, res)
		if w.Observer != nil {
			w.Observer(res)
		}
		if res.Status == StatusFailed {
			rep.Aborted = step.Name
			return rep
		}
	}
	return rep
}

func runStep(ctx context.Context, step Step, st *State) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return step.Run(ctx, st)
}
