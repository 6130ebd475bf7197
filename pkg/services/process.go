package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

// Process exposes the workflow-level operations shared by every process
// family: step inspection and the administrative retrigger gateway.
type Process struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewProcess(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Process {
	return &Process{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "process_service"),
	}
}

// Steps lists the steps of the process attached to a business entity, oldest
// first. The entity id may belong to any of the three entity families.
func (s *Process) Steps(ctx context.Context, entityID string) ([]*models.ProcessStep, error) {
	processID, err := s.resolveProcessID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	return s.persistence.Processes().Steps(ctx, processID)
}

// Retrigger re-arms a failed or skipped step identified by its RETRIGGER_*
// identifier and wakes a worker up for it.
func (s *Process) Retrigger(ctx context.Context, entityID, retriggerIdentifier string) error {
	stepType, ok := models.StepTypeFromRetrigger(retriggerIdentifier)
	if !ok {
		return &ControllerArgumentError{
			Parameter: "RetriggerType",
			Message:   fmt.Sprintf("unknown retrigger identifier %q", retriggerIdentifier),
		}
	}

	processID, err := s.resolveProcessID(ctx, entityID)
	if err != nil {
		return err
	}

	err = s.persistence.Processes().RetriggerStep(ctx, processID, stepType)
	if persistence.IsStepNotRetriggerable(err) {
		return &ConflictError{
			Parameter: "StepStatus",
			Message:   fmt.Sprintf("step %s is not in a retriggerable status", stepType),
		}
	}

	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Step retriggered",
		"entity_id", entityID,
		"process_id", processID,
		"step_type", stepType,
	)

	step, err := todoStepOfType(ctx, s.persistence.Processes(), processID, stepType)
	if err != nil {
		return err
	}

	publishStepEnqueued(ctx, s.publisher, s.logger, step)

	return nil
}

// HealthCheck reports whether the backing store is reachable.
func (s *Process) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

// resolveProcessID maps a business entity id to its process. Subscriptions,
// identity providers and applications share one id namespace (UUIDv7), so the
// first repository that knows the id wins.
func (s *Process) resolveProcessID(ctx context.Context, entityID string) (string, error) {
	if subscription, err := s.persistence.Subscriptions().GetByID(ctx, entityID); err == nil {
		return processIDOf(subscription.ProcessID)
	} else if !persistence.IsEntityNotFound(err) {
		return "", err
	}

	if provider, err := s.persistence.IdentityProviders().GetByID(ctx, entityID); err == nil {
		return processIDOf(provider.ProcessID)
	} else if !persistence.IsEntityNotFound(err) {
		return "", err
	}

	if application, err := s.persistence.Applications().GetByID(ctx, entityID); err == nil {
		return processIDOf(application.ProcessID)
	} else if !persistence.IsEntityNotFound(err) {
		return "", err
	}

	return "", fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
}

func processIDOf(processID *string) (string, error) {
	if processID == nil {
		return "", &ConflictError{Parameter: "ProcessId", Message: "entity has no process attached"}
	}

	return *processID, nil
}

func todoStepOfType(ctx context.Context, repo persistence.ProcessRepository, processID string, stepType models.StepType) (*models.ProcessStep, error) {
	steps, err := repo.Steps(ctx, processID)
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		if step.Type == stepType && step.Status == models.StepStatusTodo {
			return step, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", persistence.ErrStepNotFound, stepType)
}
