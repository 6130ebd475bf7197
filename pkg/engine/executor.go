package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/classify"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/otelhelper"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/protocol"
	"github.com/venohr/stepflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxStepsPerRun bounds one executor pass. A healthy process chain is a
// handful of steps long; hitting the bound means a handler keeps enqueueing
// successors in a cycle.
const maxStepsPerRun = 100

// Executor advances a process until no actionable step remains or a step
// fails. Multiple executors may race on the same process; the store's
// finalize guard makes the loser drop out without side effects on the step
// chain.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	workerID    string
}

func NewExecutor(
	p persistence.Persistence,
	r *registry.Registry,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
	workerID string,
) *Executor {
	return &Executor{
		persistence: p,
		registry:    r,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("module", "executor", "worker_id", workerID),
		workerID:    workerID,
	}
}

// Run executes the process's pending steps one at a time. A failed step stops
// the pass with a nil error: the failure is recorded on the step itself and
// resolved through a retrigger, not by bubbling up to the caller.
func (e *Executor) Run(ctx context.Context, processID string) error {
	logger := e.logger.With("process_id", processID)

	process, err := e.persistence.Processes().ProcessByID(ctx, processID)
	if err != nil {
		return fmt.Errorf("failed to load process %s: %w", processID, err)
	}

	entityID := e.resolveEntityID(ctx, process)

	for range maxStepsPerRun {
		steps, err := e.persistence.Processes().Steps(ctx, processID)
		if err != nil {
			return fmt.Errorf("failed to load steps for process %s: %w", processID, err)
		}

		step, err := NextStep(process.Type.OwnerLabel(), entityID, steps)
		if err != nil {
			logger.ErrorContext(ctx, "Process is in an inconsistent state", "error", err)

			return err
		}

		if step == nil {
			logger.InfoContext(ctx, "Process finished, no pending steps remain")
			e.publishProcessFinished(ctx, processID)

			return nil
		}

		proceed, err := e.executeStep(ctx, logger, step)
		if err != nil {
			return err
		}

		if !proceed {
			return nil
		}
	}

	return fmt.Errorf("process %s exceeded %d steps in one run, aborting", processID, maxStepsPerRun)
}

// executeStep dispatches one step and finalizes its outcome. The second
// return value tells the run loop whether to keep going.
func (e *Executor) executeStep(ctx context.Context, logger *slog.Logger, step *models.ProcessStep) (bool, error) {
	logger = logger.With("step_id", step.ID, "step_type", step.Type)

	handler, err := e.registry.HandlerFor(step.Type)
	if err != nil {
		return false, fmt.Errorf("cannot execute step %s: %w", step.ID, err)
	}

	spanCtx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_step",
		attribute.String(otelhelper.ProcessIDKey, step.ProcessID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		attribute.String(otelhelper.WorkerIDKey, e.workerID),
	)
	defer span.End()

	logger.InfoContext(spanCtx, "Executing step")

	result, execErr := handler.Execute(spanCtx, step.ProcessID)
	if execErr != nil {
		otelhelper.SetError(span, execErr)

		result = protocol.StepResult{
			Status:  models.StepStatusFailed,
			Message: classify.Message(execErr),
		}

		logger.WarnContext(spanCtx, "Step failed",
			"error", execErr,
			"kind", string(classify.Classify(execErr)),
			"message", result.Message,
		)
	}

	span.SetAttributes(attribute.String(otelhelper.StepStatusKey, string(result.Status)))

	finalized, err := e.persistence.Processes().FinalizeStep(spanCtx, step.ID, result.Status, result.Message, result.Successors)
	if err != nil {
		return false, fmt.Errorf("failed to finalize step %s: %w", step.ID, err)
	}

	if !finalized {
		logger.InfoContext(spanCtx, "Step was finalized by another worker, backing off")

		return false, nil
	}

	e.publishStepCompleted(spanCtx, step, result.Status, result.Message)

	// A failure parks the process until an operator retriggers the step.
	return result.Status != models.StepStatusFailed, nil
}

// resolveEntityID finds the business entity the process belongs to, used to
// name the owner in diagnostics. Falls back to the process ID when the entity
// is gone.
func (e *Executor) resolveEntityID(ctx context.Context, process *models.Process) string {
	switch process.Type {
	case models.ProcessTypeOfferSubscription:
		if subscription, err := e.persistence.Subscriptions().GetByProcessID(ctx, process.ID); err == nil {
			return subscription.ID
		}
	case models.ProcessTypeIdentityProviderSetup:
		if provider, err := e.persistence.IdentityProviders().GetByProcessID(ctx, process.ID); err == nil {
			return provider.ID
		}
	case models.ProcessTypeNetworkRegistration:
		if application, err := e.persistence.Applications().GetByProcessID(ctx, process.ID); err == nil {
			return application.ID
		}
	}

	return process.ID
}

func (e *Executor) publishStepCompleted(ctx context.Context, step *models.ProcessStep, status models.StepStatus, message string) {
	event := events.StepCompleted{
		BaseEvent: events.NewBaseEvent(events.StepCompletedEvent, step.ProcessID),
		StepID:    step.ID,
		StepType:  step.Type,
		Status:    status,
		Message:   message,
	}
	event.WorkerID = e.workerID

	if err := e.publisher.Publish(ctx, step.ProcessID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish step completed event", "error", err, "step_id", step.ID)
	}
}

func (e *Executor) publishProcessFinished(ctx context.Context, processID string) {
	event := events.ProcessFinished{
		BaseEvent: events.NewBaseEvent(events.ProcessFinishedEvent, processID),
	}
	event.WorkerID = e.workerID

	if err := e.publisher.Publish(ctx, processID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish process finished event", "error", err, "process_id", processID)
	}
}
