// Package registry maps step types to their handlers.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/protocol"
)

type Registry struct {
	logger   *slog.Logger
	handlers map[models.StepType]protocol.StepHandler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log,
		handlers: make(map[models.StepType]protocol.StepHandler),
	}
}

// Register wires a handler for its step type. Registering the same type twice
// is a wiring bug and panics at startup rather than silently replacing.
func (r *Registry) Register(handler protocol.StepHandler) {
	stepType := handler.StepType()

	if _, exists := r.handlers[stepType]; exists {
		panic(fmt.Sprintf("step handler for '%s' registered twice", stepType))
	}

	r.handlers[stepType] = handler
	r.logger.Debug("Registered step handler", "step_type", stepType)
}

func (r *Registry) HandlerFor(stepType models.StepType) (protocol.StepHandler, error) {
	handler, ok := r.handlers[stepType]
	if !ok {
		return nil, fmt.Errorf("step type '%s' not registered", stepType)
	}

	return handler, nil
}

// Validate checks that every known step type has a handler, so a worker with a
// partial registry refuses to start instead of stalling processes at runtime.
func (r *Registry) Validate() error {
	for _, stepType := range models.AllStepTypes() {
		if _, ok := r.handlers[stepType]; !ok {
			return fmt.Errorf("no handler registered for step type '%s'", stepType)
		}
	}

	return nil
}

// StepTypes returns the registered step types.
func (r *Registry) StepTypes() []models.StepType {
	types := make([]models.StepType, 0, len(r.handlers))
	for stepType := range r.handlers {
		types = append(types, stepType)
	}

	return types
}
