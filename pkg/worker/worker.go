package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/persistence"
)

// defaultRecoveryGrace keeps the poller away from steps a live worker is
// probably still executing.
const defaultRecoveryGrace = 5 * time.Minute

const recoverySchedule = "@every 1m"

// Worker consumes step-enqueued events and drives the executor. A cron-based
// poller picks up processes whose events were lost or whose worker died
// mid-run.
type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	executor    *engine.Executor
	lease       Lease
	cron        *cron.Cron

	recoveryGrace time.Duration
}

func New(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	executor *engine.Executor,
	lease Lease,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:          id,
		logger:      logger.With("module", "worker", "worker_id", id),
		persistence: p,
		eventBus:    eventBus,
		executor:    executor,
		lease:       lease,
		cron:        cron.New(),

		recoveryGrace: defaultRecoveryGrace,
	}
}

// Start subscribes to the event bus, starts the recovery poller and blocks
// until the context is cancelled or a termination signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	if err := w.eventBus.Handle(events.StepEnqueuedEvent, w.handleStepEnqueued); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.ProcessStartedEvent, w.handleProcessStarted); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if _, err := w.cron.AddFunc(recoverySchedule, func() { w.recoverPendingProcesses(ctx) }); err != nil {
		return err
	}

	w.cron.Start()
	defer w.cron.Stop()

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
	case <-ctx.Done():
		w.logger.InfoContext(ctx, "Context cancelled, shutting down worker...")
	}

	return nil
}

func (w *Worker) handleStepEnqueued(ctx context.Context, event any) error {
	enqueuedEvent, ok := event.(*events.StepEnqueued)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for StepEnqueued")

		return nil
	}

	logger := w.logger.With(
		"process_id", enqueuedEvent.ProcessID,
		"step_id", enqueuedEvent.StepID,
		"step_type", enqueuedEvent.StepType,
		"event_id", enqueuedEvent.ID,
	)
	logger.InfoContext(ctx, "Processing step enqueued event")

	return w.runProcess(ctx, logger, enqueuedEvent.ProcessID)
}

func (w *Worker) handleProcessStarted(ctx context.Context, event any) error {
	startedEvent, ok := event.(*events.ProcessStarted)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ProcessStarted")

		return nil
	}

	logger := w.logger.With(
		"process_id", startedEvent.ProcessID,
		"process_type", startedEvent.ProcessType,
		"event_id", startedEvent.ID,
	)
	logger.InfoContext(ctx, "Processing process started event")

	return w.runProcess(ctx, logger, startedEvent.ProcessID)
}

// runProcess takes the process lease and hands over to the executor. A held
// lease means another worker is already on it and this event can be dropped.
func (w *Worker) runProcess(ctx context.Context, logger *slog.Logger, processID string) error {
	release, acquired, err := w.lease.Acquire(ctx, processID)
	if err != nil {
		return err
	}

	if !acquired {
		logger.InfoContext(ctx, "Process is leased by another worker, skipping")

		return nil
	}
	defer release()

	if err := w.executor.Run(ctx, processID); err != nil {
		var conflicting *engine.AmbiguousTodoError
		if errors.As(err, &conflicting) {
			// Redelivering the event cannot repair this state; an operator
			// has to resolve it through the retrigger endpoint.
			logger.ErrorContext(ctx, "Process has conflicting open steps, parking it",
				"error", err,
				"step_types", conflicting.StepTypes,
			)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to run process", "error", err)

		return err
	}

	return nil
}

// recoverPendingProcesses re-runs processes that still have TODO steps older
// than the grace window.
func (w *Worker) recoverPendingProcesses(ctx context.Context) {
	cutoff := time.Now().Add(-w.recoveryGrace)

	processIDs, err := w.persistence.Processes().PendingProcesses(ctx, cutoff)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list pending processes", "error", err)

		return
	}

	if len(processIDs) == 0 {
		return
	}

	w.logger.InfoContext(ctx, "Recovering stalled processes", "count", len(processIDs))

	for _, processID := range processIDs {
		logger := w.logger.With("process_id", processID)
		if err := w.runProcess(ctx, logger, processID); err != nil {
			logger.ErrorContext(ctx, "Failed to recover process", "error", err)
		}
	}
}
