package worker

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence/memory"
	"github.com/venohr/stepflow/pkg/protocol"
	"github.com/venohr/stepflow/pkg/registry"
	"go.opentelemetry.io/otel/trace/noop"
)

type countingHandler struct {
	stepType models.StepType
	calls    atomic.Int64
}

func (h *countingHandler) StepType() models.StepType { return h.stepType }

func (h *countingHandler) Execute(_ context.Context, _ string) (protocol.StepResult, error) {
	h.calls.Add(1)

	return protocol.Done(), nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error { return nil }

func newTestWorker(t *testing.T, store *memory.Persistence, handler protocol.StepHandler) *Worker {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)
	reg.Register(handler)

	executor := engine.NewExecutor(
		store,
		reg,
		discardPublisher{},
		noop.NewTracerProvider().Tracer("test"),
		logger,
		"worker-test",
	)

	return New("worker-test", store, nil, executor, NewLocalLease(), logger)
}

func startProcess(ctx context.Context, t *testing.T, store *memory.Persistence, stepType models.StepType) *models.Process {
	t.Helper()

	process := &models.Process{Type: models.ProcessTypeNetworkRegistration}
	require.NoError(t, store.Processes().CreateProcess(ctx, process))

	_, err := store.Processes().EnqueueStep(ctx, process.ID, stepType)
	require.NoError(t, err)

	return process
}

func TestLocalLease_Exclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lease := NewLocalLease()

	release, acquired, err := lease.Acquire(ctx, "process-1")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = lease.Acquire(ctx, "process-1")
	require.NoError(t, err)
	assert.False(t, acquired)

	// A different process is unaffected.
	otherRelease, acquired, err := lease.Acquire(ctx, "process-2")
	require.NoError(t, err)
	assert.True(t, acquired)
	otherRelease()

	release()

	release, acquired, err = lease.Acquire(ctx, "process-1")
	require.NoError(t, err)
	assert.True(t, acquired)
	release()
}

func TestHandleStepEnqueued_RunsProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	process := startProcess(ctx, t, store, models.StepCallbackOspApproved)

	event := &events.StepEnqueued{
		BaseEvent: events.NewBaseEvent(events.StepEnqueuedEvent, process.ID),
		StepType:  models.StepCallbackOspApproved,
	}
	require.NoError(t, w.handleStepEnqueued(ctx, event))

	assert.Equal(t, int64(1), handler.calls.Load())

	steps, err := store.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, models.StepStatusDone, steps[0].Status)
}

func TestHandleStepEnqueued_SkipsLeasedProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	process := startProcess(ctx, t, store, models.StepCallbackOspApproved)

	_, acquired, err := w.lease.Acquire(ctx, process.ID)
	require.NoError(t, err)
	require.True(t, acquired)

	event := &events.StepEnqueued{
		BaseEvent: events.NewBaseEvent(events.StepEnqueuedEvent, process.ID),
		StepType:  models.StepCallbackOspApproved,
	}
	require.NoError(t, w.handleStepEnqueued(ctx, event))

	assert.Equal(t, int64(0), handler.calls.Load())

	steps, err := store.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusTodo, steps[0].Status)
}

func TestHandleStepEnqueued_ParksProcessWithConflictingOpenSteps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	process := startProcess(ctx, t, store, models.StepCallbackOspApproved)

	// A second open step of a different type makes the next step ambiguous.
	_, err := store.Processes().EnqueueStep(ctx, process.ID, models.StepSynchronizeUser)
	require.NoError(t, err)

	event := &events.StepEnqueued{
		BaseEvent: events.NewBaseEvent(events.StepEnqueuedEvent, process.ID),
		StepType:  models.StepCallbackOspApproved,
	}

	// The event is acknowledged: redelivering it would loop forever without
	// ever repairing the process.
	require.NoError(t, w.handleStepEnqueued(ctx, event))
	assert.Equal(t, int64(0), handler.calls.Load())

	steps, err := store.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepStatusTodo, steps[0].Status)
	assert.Equal(t, models.StepStatusTodo, steps[1].Status)
}

func TestHandleStepEnqueued_IgnoresWrongEventType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	require.NoError(t, w.handleStepEnqueued(ctx, "not an event"))
	assert.Equal(t, int64(0), handler.calls.Load())
}

func TestRecoverPendingProcesses_PicksUpStalledProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	// A negative grace moves the cutoff into the future so the fresh TODO
	// step counts as stalled.
	w.recoveryGrace = -time.Minute

	process := startProcess(ctx, t, store, models.StepCallbackOspApproved)

	w.recoverPendingProcesses(ctx)

	assert.Equal(t, int64(1), handler.calls.Load())

	steps, err := store.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, steps[0].Status)
}

func TestRecoverPendingProcesses_NothingStalled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()
	handler := &countingHandler{stepType: models.StepCallbackOspApproved}
	w := newTestWorker(t, store, handler)

	startProcess(ctx, t, store, models.StepCallbackOspApproved)

	// The step was just created: it is inside the grace window.
	w.recoverPendingProcesses(ctx)

	assert.Equal(t, int64(0), handler.calls.Load())
}
