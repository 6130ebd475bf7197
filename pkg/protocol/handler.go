// Package protocol defines the contracts between the process executor and the
// step handlers it dispatches to.
package protocol

import (
	"context"

	"github.com/venohr/stepflow/pkg/models"
)

// StepResult is the outcome a handler reports back to the executor. Successors
// are appended as TODO steps in the same transaction that finalizes the
// current one.
type StepResult struct {
	Status     models.StepStatus
	Message    string
	Successors []models.StepType
}

// StepHandler executes the side effect behind a single step type. Execute
// receives the process ID and resolves its own entity state from persistence;
// handlers must be safe to run again after a crash, so any external call they
// make has to be idempotent or guarded by a lookup.
type StepHandler interface {
	StepType() models.StepType
	Execute(ctx context.Context, processID string) (StepResult, error)
}

// Done reports a successful step with the given successors.
func Done(successors ...models.StepType) StepResult {
	return StepResult{Status: models.StepStatusDone, Successors: successors}
}

// Skipped reports a step that was intentionally not executed.
func Skipped(message string) StepResult {
	return StepResult{Status: models.StepStatusSkipped, Message: message}
}
