package subscription_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/handlers/subscription"
	"github.com/venohr/stepflow/pkg/mocks"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence/memory"
	"github.com/venohr/stepflow/pkg/protocol"
	"github.com/venohr/stepflow/pkg/registry"
	"go.opentelemetry.io/otel/trace/noop"
)

type fixture struct {
	persistence  *memory.Persistence
	provisioning *mocks.MockProvisioning
	notifier     *mocks.MockNotifier
	mailer       *mocks.MockMailer
	callback     *mocks.MockCallback
	handlers     map[models.StepType]protocol.StepHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		persistence:  memory.NewPersistence(),
		provisioning: &mocks.MockProvisioning{},
		notifier:     &mocks.MockNotifier{},
		mailer:       &mocks.MockMailer{},
		callback:     &mocks.MockCallback{},
		handlers:     make(map[models.StepType]protocol.StepHandler),
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	for _, handler := range subscription.Handlers(subscription.Dependencies{
		Persistence:  f.persistence,
		Provisioning: f.provisioning,
		Notifier:     f.notifier,
		Mailer:       f.mailer,
		Callback:     f.callback,
		Logger:       logger,
	}) {
		f.handlers[handler.StepType()] = handler
	}

	return f
}

func (f *fixture) seedSubscription(ctx context.Context, t *testing.T, mutate func(*models.OfferSubscription)) (*models.Process, *models.OfferSubscription) {
	t.Helper()

	process := &models.Process{Type: models.ProcessTypeOfferSubscription}
	require.NoError(t, f.persistence.Processes().CreateProcess(ctx, process))

	sub := &models.OfferSubscription{
		OfferID:        "offer-1",
		OfferName:      "Fleet Telemetry",
		CompanyID:      "company-1",
		RequesterID:    "user-1",
		RequesterEmail: "ops@example.com",
		Status:         models.SubscriptionStatusPending,
		InstanceURL:    "https://telemetry.example.com",
		CallbackURL:    "https://provider.example.com/callback",
		ProcessID:      &process.ID,
	}

	if mutate != nil {
		mutate(sub)
	}

	require.NoError(t, f.persistence.Subscriptions().Save(ctx, sub))

	return process, sub
}

func TestClientCreation_CreatesAndStoresClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, nil)

	f.provisioning.On("GetClientByName", mock.Anything, "sub-"+sub.ID).Return(nil, nil)
	f.provisioning.On("CreateClient", mock.Anything, "sub-"+sub.ID, sub.InstanceURL).
		Return(&clients.Client{ID: "client-1", Name: "sub-" + sub.ID}, nil)

	result, err := f.handlers[models.StepClientCreation].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	assert.Equal(t, []models.StepType{models.StepTechnicalUserCreation}, result.Successors)

	stored, err := f.persistence.Subscriptions().GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ClientID)
	assert.Equal(t, "client-1", *stored.ClientID)
}

func TestClientCreation_ReusesExistingClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, nil)

	// A client left behind by a crashed earlier attempt is picked up, not
	// recreated.
	f.provisioning.On("GetClientByName", mock.Anything, "sub-"+sub.ID).
		Return(&clients.Client{ID: "client-old"}, nil)

	result, err := f.handlers[models.StepClientCreation].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)

	f.provisioning.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything, mock.Anything)

	stored, err := f.persistence.Subscriptions().GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ClientID)
	assert.Equal(t, "client-old", *stored.ClientID)
}

func TestTechnicalUserCreation_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	existing := "tu-existing"
	process, _ := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.TechnicalUser = &existing
	})

	result, err := f.handlers[models.StepTechnicalUserCreation].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	assert.Equal(t, []models.StepType{models.StepSingleInstanceDetails}, result.Successors)

	f.provisioning.AssertNotCalled(t, "CreateTechnicalUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestSingleInstanceDetails_SkippedForMultiInstance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, _ := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.SingleInstance = false
	})

	result, err := f.handlers[models.StepSingleInstanceDetails].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusSkipped, result.Status)
	assert.Equal(t, "subscription is not single instance", result.Message)
	assert.Equal(t, []models.StepType{models.StepActivateSubscription}, result.Successors)
}

func TestSingleInstanceDetails_CreatesDetails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.SingleInstance = true
	})

	f.provisioning.On("CreateInstanceDetails", mock.Anything, sub.ID, sub.InstanceURL).Return(nil)

	result, err := f.handlers[models.StepSingleInstanceDetails].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	f.provisioning.AssertExpectations(t)
}

func TestActivateSubscription_ActivatesNotifiesAndMails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, nil)

	f.notifier.On("Notify", mock.Anything, sub.RequesterID, "SUBSCRIPTION_ACTIVATION", mock.Anything).Return(nil)
	f.mailer.On("Send", mock.Anything, sub.RequesterEmail, "subscription-activated", mock.Anything).Return(nil)

	result, err := f.handlers[models.StepActivateSubscription].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	assert.Equal(t, []models.StepType{models.StepProviderCallback}, result.Successors)

	stored, err := f.persistence.Subscriptions().GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	f.mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestProviderCallback_PostsPayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	clientID := "client-1"
	technicalUser := "tu-1"
	process, sub := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.Status = models.SubscriptionStatusActive
		s.ClientID = &clientID
		s.TechnicalUser = &technicalUser
	})

	f.callback.On("NotifyProvider", mock.Anything, sub.CallbackURL, clients.CallbackPayload{
		SubscriptionID: sub.ID,
		ClientID:       clientID,
		TechnicalUser:  technicalUser,
		Status:         "ACTIVE",
	}).Return(nil)

	result, err := f.handlers[models.StepProviderCallback].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	assert.Empty(t, result.Successors)
	f.callback.AssertExpectations(t)
}

func TestProviderCallback_SkippedWithoutURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, _ := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.CallbackURL = ""
	})

	result, err := f.handlers[models.StepProviderCallback].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusSkipped, result.Status)
	f.callback.AssertNotCalled(t, "NotifyProvider", mock.Anything, mock.Anything, mock.Anything)
}

type discardPublisher struct{}

func (discardPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error { return nil }

func TestChain_SingleInstanceEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, func(s *models.OfferSubscription) {
		s.SingleInstance = true
	})

	_, err := f.persistence.Processes().EnqueueStep(ctx, process.ID, models.StepClientCreation)
	require.NoError(t, err)

	f.provisioning.On("GetClientByName", mock.Anything, "sub-"+sub.ID).Return(nil, nil)
	f.provisioning.On("CreateClient", mock.Anything, "sub-"+sub.ID, sub.InstanceURL).
		Return(&clients.Client{ID: "client-1", Name: "sub-" + sub.ID}, nil)
	f.provisioning.On("CreateTechnicalUser", mock.Anything, sub.CompanyID, "tu-"+sub.ID).
		Return(&clients.TechnicalUser{ID: "tu-1"}, nil)
	f.provisioning.On("CreateInstanceDetails", mock.Anything, sub.ID, sub.InstanceURL).Return(nil)
	f.notifier.On("Notify", mock.Anything, sub.RequesterID, "SUBSCRIPTION_ACTIVATION", mock.Anything).Return(nil)
	f.mailer.On("Send", mock.Anything, sub.RequesterEmail, "subscription-activated", mock.Anything).Return(nil)
	f.callback.On("NotifyProvider", mock.Anything, sub.CallbackURL, clients.CallbackPayload{
		SubscriptionID: sub.ID,
		ClientID:       "client-1",
		TechnicalUser:  "tu-1",
		Status:         "ACTIVE",
	}).Return(nil)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)
	for _, handler := range f.handlers {
		reg.Register(handler)
	}

	executor := engine.NewExecutor(
		f.persistence,
		reg,
		discardPublisher{},
		noop.NewTracerProvider().Tracer("test"),
		logger,
		"worker-test",
	)

	require.NoError(t, executor.Run(ctx, process.ID))

	stored, err := f.persistence.Subscriptions().GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.ClientID)
	assert.Equal(t, "client-1", *stored.ClientID)
	require.NotNil(t, stored.TechnicalUser)
	assert.Equal(t, "tu-1", *stored.TechnicalUser)

	steps, err := f.persistence.Processes().Steps(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	for _, step := range steps {
		assert.Equal(t, models.StepStatusDone, step.Status, string(step.Type))
	}

	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	f.mailer.AssertNumberOfCalls(t, "Send", 1)
	f.callback.AssertExpectations(t)
}

func TestProviderCallback_FailurePropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, sub := f.seedSubscription(ctx, t, nil)

	f.callback.On("NotifyProvider", mock.Anything, sub.CallbackURL, mock.Anything).
		Return(assert.AnError)

	_, err := f.handlers[models.StepProviderCallback].Execute(ctx, process.ID)
	assert.Error(t, err)
}
