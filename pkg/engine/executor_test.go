package engine_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/classify"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence/memory"
	"github.com/venohr/stepflow/pkg/protocol"
	"github.com/venohr/stepflow/pkg/registry"
	"go.opentelemetry.io/otel/trace/noop"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturingPublisher) byType(eventType events.EventType) []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []eventbus.Event

	for _, event := range p.events {
		if event.GetType() == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}

type funcHandler struct {
	stepType models.StepType
	execute  func(ctx context.Context, processID string) (protocol.StepResult, error)
	calls    int
}

func (h *funcHandler) StepType() models.StepType { return h.stepType }

func (h *funcHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	h.calls++

	return h.execute(ctx, processID)
}

func doneHandler(stepType models.StepType, successors ...models.StepType) *funcHandler {
	return &funcHandler{
		stepType: stepType,
		execute: func(_ context.Context, _ string) (protocol.StepResult, error) {
			return protocol.Done(successors...), nil
		},
	}
}

func newTestExecutor(t *testing.T, p *memory.Persistence, handlers ...protocol.StepHandler) (*engine.Executor, *capturingPublisher) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := registry.NewRegistry(logger)

	for _, handler := range handlers {
		reg.Register(handler)
	}

	publisher := &capturingPublisher{}
	tracer := noop.NewTracerProvider().Tracer("test")

	return engine.NewExecutor(p, reg, publisher, tracer, logger, "worker-test"), publisher
}

func startProcess(ctx context.Context, t *testing.T, p *memory.Persistence, processType models.ProcessType, first models.StepType) *models.Process {
	t.Helper()

	process := &models.Process{Type: processType}
	require.NoError(t, p.Processes().CreateProcess(ctx, process))

	_, err := p.Processes().EnqueueStep(ctx, process.ID, first)
	require.NoError(t, err)

	return process
}

func TestExecutor_RunsChainToCompletion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := memory.NewPersistence()

	first := doneHandler(models.StepClientCreation, models.StepTechnicalUserCreation)
	second := doneHandler(models.StepTechnicalUserCreation, models.StepActivateSubscription)
	third := doneHandler(models.StepActivateSubscription)

	executor, publisher := newTestExecutor(t, p, first, second, third)
	process := startProcess(ctx, t, p, models.ProcessTypeOfferSubscription, models.StepClientCreation)

	require.NoError(t, executor.Run(ctx, process.ID))

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)

	steps, err := p.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	for _, s := range steps {
		assert.Equal(t, models.StepStatusDone, s.Status)
	}

	assert.Len(t, publisher.byType(events.StepCompletedEvent), 3)
	assert.Len(t, publisher.byType(events.ProcessFinishedEvent), 1)
}

func TestExecutor_FailedStepParksProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := memory.NewPersistence()

	failing := &funcHandler{
		stepType: models.StepProviderCallback,
		execute: func(_ context.Context, _ string) (protocol.StepResult, error) {
			return protocol.StepResult{}, classify.NewError(502, "Request failed")
		},
	}

	executor, publisher := newTestExecutor(t, p, failing)
	process := startProcess(ctx, t, p, models.ProcessTypeOfferSubscription, models.StepProviderCallback)

	// A step failure is recorded, not returned.
	require.NoError(t, executor.Run(ctx, process.ID))

	steps, err := p.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, models.StepStatusFailed, steps[0].Status)
	assert.Equal(t, "Request failed", steps[0].Message)

	completed := publisher.byType(events.StepCompletedEvent)
	require.Len(t, completed, 1)
	assert.Empty(t, publisher.byType(events.ProcessFinishedEvent))
}

func TestExecutor_SkippedStepContinuesChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := memory.NewPersistence()

	skipping := &funcHandler{
		stepType: models.StepSingleInstanceDetails,
		execute: func(_ context.Context, _ string) (protocol.StepResult, error) {
			result := protocol.Skipped("subscription is not single instance")
			result.Successors = []models.StepType{models.StepActivateSubscription}

			return result, nil
		},
	}
	activate := doneHandler(models.StepActivateSubscription)

	executor, _ := newTestExecutor(t, p, skipping, activate)
	process := startProcess(ctx, t, p, models.ProcessTypeOfferSubscription, models.StepSingleInstanceDetails)

	require.NoError(t, executor.Run(ctx, process.ID))

	steps, err := p.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepStatusSkipped, steps[0].Status)
	assert.Equal(t, models.StepStatusDone, steps[1].Status)
	assert.Equal(t, 1, activate.calls)
}

func TestExecutor_AmbiguousTodoHalts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := memory.NewPersistence()

	executor, publisher := newTestExecutor(t, p,
		doneHandler(models.StepClientCreation),
		doneHandler(models.StepTechnicalUserCreation),
	)
	process := startProcess(ctx, t, p, models.ProcessTypeOfferSubscription, models.StepClientCreation)

	_, err := p.Processes().EnqueueStep(ctx, process.ID, models.StepTechnicalUserCreation)
	require.NoError(t, err)

	subscription := &models.OfferSubscription{
		OfferID:     "offer-1",
		OfferName:   "Fleet Telemetry",
		CompanyID:   "company-1",
		RequesterID: "user-1",
		Status:      models.SubscriptionStatusPending,
		ProcessID:   &process.ID,
	}
	require.NoError(t, p.Subscriptions().Save(ctx, subscription))

	err = executor.Run(ctx, process.ID)
	require.Error(t, err)

	var ambiguous *engine.AmbiguousTodoError

	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "Offers: "+subscription.ID+" contains more than one process step in todo", err.Error())

	// Nothing was executed or finalized.
	steps, stepsErr := p.Processes().Steps(ctx, process.ID)
	require.NoError(t, stepsErr)

	for _, s := range steps {
		assert.Equal(t, models.StepStatusTodo, s.Status)
	}

	assert.Empty(t, publisher.byType(events.StepCompletedEvent))
}

func TestExecutor_LostRaceBacksOff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := memory.NewPersistence()

	var stepID string

	racing := &funcHandler{stepType: models.StepSynchronizeUser}
	racing.execute = func(execCtx context.Context, _ string) (protocol.StepResult, error) {
		// Another worker finalizes the step while this handler runs.
		finalized, err := p.Processes().FinalizeStep(execCtx, stepID, models.StepStatusDone, "", []models.StepType{models.StepCallbackOspApproved})
		require.NoError(t, err)
		require.True(t, finalized)

		return protocol.Done(models.StepCallbackOspDeclined), nil
	}

	executor, publisher := newTestExecutor(t, p, racing)

	process := &models.Process{Type: models.ProcessTypeNetworkRegistration}
	require.NoError(t, p.Processes().CreateProcess(ctx, process))

	enqueued, err := p.Processes().EnqueueStep(ctx, process.ID, models.StepSynchronizeUser)
	require.NoError(t, err)

	stepID = enqueued.ID

	require.NoError(t, executor.Run(ctx, process.ID))

	// The loser's outcome is discarded: only the winner's successor exists.
	steps, err := p.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepStatusDone, steps[0].Status)
	assert.Equal(t, models.StepCallbackOspApproved, steps[1].Type)
	assert.Empty(t, publisher.byType(events.StepCompletedEvent))
}
