// Package engine drives process execution: it picks the next actionable step
// of a process and dispatches it to the registered handler.
package engine

import (
	"fmt"

	"github.com/venohr/stepflow/pkg/models"
)

// AmbiguousTodoError reports a process whose TODO steps span more than one
// step type. Execution halts until an operator resolves the corrupt state;
// the engine never guesses which branch to run.
type AmbiguousTodoError struct {
	OwnerLabel string
	EntityID   string
	StepTypes  []models.StepType
}

func (e *AmbiguousTodoError) Error() string {
	return fmt.Sprintf("%s: %s contains more than one process step in todo", e.OwnerLabel, e.EntityID)
}

// NextStep selects the single actionable step among the process's steps.
// Returns nil when no TODO step remains, meaning the process is finished.
func NextStep(ownerLabel, entityID string, steps []*models.ProcessStep) (*models.ProcessStep, error) {
	var (
		selected *models.ProcessStep
		types    []models.StepType
	)

	for _, step := range steps {
		if step.Status != models.StepStatusTodo {
			continue
		}

		if !containsType(types, step.Type) {
			types = append(types, step.Type)
		}

		if selected == nil || step.CreatedAt.Before(selected.CreatedAt) {
			selected = step
		}
	}

	if len(types) > 1 {
		return nil, &AmbiguousTodoError{
			OwnerLabel: ownerLabel,
			EntityID:   entityID,
			StepTypes:  types,
		}
	}

	return selected, nil
}

func containsType(types []models.StepType, stepType models.StepType) bool {
	for _, t := range types {
		if t == stepType {
			return true
		}
	}

	return false
}
