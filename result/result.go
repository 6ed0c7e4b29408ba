// Package result implements the outcome model shared by every unit of work:
// one TaskResult per message, one per folder, one per run. Child results are
// folded into their parent; counters sum, error lists concatenate, and
// success degrades monotonically.
package result

import (
	"fmt"
	"time"

	"github.com/mailarc/mailarc/consts"
)

// TaskError is a single recorded failure. Immutable once created.
type TaskError struct {
	Kind    consts.ErrorKind
	Context string
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

// TaskResult aggregates the outcome of one unit of work. Success starts true
// and flips to false on the first recorded error; it never flips back.
type TaskResult struct {
	Success      bool
	Errors       []TaskError
	ReturnValue  any
	StartTime    time.Time
	FinishTime   time.Time
	TotalItems   int
	MaxItems     int
	SkippedItems int
}

// New creates a TaskResult with StartTime set to now and Success true.
func New() *TaskResult {
	return &TaskResult{
		Success:   true,
		StartTime: time.Now(),
	}
}

// AddError records a failure and marks the result unsuccessful. Append-only:
// errors are never removed and Success never returns to true.
func (r *TaskResult) AddError(kind consts.ErrorKind, context string) {
	r.Errors = append(r.Errors, TaskError{Kind: kind, Context: context})
	r.Success = false
}

// AddErrorf is AddError with Sprintf-style context formatting.
func (r *TaskResult) AddErrorf(kind consts.ErrorKind, format string, args ...any) {
	r.AddError(kind, fmt.Sprintf(format, args...))
}

// Fold merges a child result into r: errors concatenate in order, counters
// sum, and r.Success stays true only if both were successful.
func (r *TaskResult) Fold(child *TaskResult) {
	if child == nil {
		return
	}
	r.Errors = append(r.Errors, child.Errors...)
	r.TotalItems += child.TotalItems
	r.MaxItems += child.MaxItems
	r.SkippedItems += child.SkippedItems
	if !child.Success {
		r.Success = false
	}
}

// Finish stamps FinishTime and returns r for call chaining.
func (r *TaskResult) Finish() *TaskResult {
	r.FinishTime = time.Now()
	return r
}

// Duration reports the elapsed wall time between start and finish. Zero if
// the result has not been finished yet.
func (r *TaskResult) Duration() time.Duration {
	if r.FinishTime.IsZero() {
		return 0
	}
	return r.FinishTime.Sub(r.StartTime)
}

// Summary renders the run-level three-number summary plus error count.
func (r *TaskResult) Summary() string {
	return fmt.Sprintf("max=%d total=%d skipped=%d errors=%d success=%t",
		r.MaxItems, r.TotalItems, r.SkippedItems, len(r.Errors), r.Success)
}
