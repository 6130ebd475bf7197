package network_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/handlers/network"
	"github.com/venohr/stepflow/pkg/mocks"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence/memory"
	"github.com/venohr/stepflow/pkg/protocol"
)

type fixture struct {
	persistence  *memory.Persistence
	provisioning *mocks.MockProvisioning
	callback     *mocks.MockCallback
	handlers     map[models.StepType]protocol.StepHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		persistence:  memory.NewPersistence(),
		provisioning: &mocks.MockProvisioning{},
		callback:     &mocks.MockCallback{},
		handlers:     make(map[models.StepType]protocol.StepHandler),
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	for _, handler := range network.Handlers(network.Dependencies{
		Persistence:  f.persistence,
		Provisioning: f.provisioning,
		Callback:     f.callback,
		Logger:       logger,
	}) {
		f.handlers[handler.StepType()] = handler
	}

	return f
}

func (f *fixture) seedApplication(ctx context.Context, t *testing.T, status models.ApplicationStatus, mutate func(*models.CompanyApplication)) (*models.Process, *models.CompanyApplication) {
	t.Helper()

	process := &models.Process{Type: models.ProcessTypeNetworkRegistration}
	require.NoError(t, f.persistence.Processes().CreateProcess(ctx, process))

	application := &models.CompanyApplication{
		CompanyID:      "company-1",
		CompanyName:    "Example Logistics GmbH",
		Status:         status,
		ExternalUserID: "osp-user-1",
		OspCallbackURL: "https://osp.example.com/callback",
		ProcessID:      &process.ID,
	}

	if mutate != nil {
		mutate(application)
	}

	require.NoError(t, f.persistence.Applications().Save(ctx, application))

	return process, application
}

func TestSynchronizeUser_RoutesByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    models.ApplicationStatus
		successor models.StepType
	}{
		{name: "approved", status: models.ApplicationStatusApproved, successor: models.StepCallbackOspApproved},
		{name: "declined", status: models.ApplicationStatusDeclined, successor: models.StepCallbackOspDeclined},
		{name: "submitted", status: models.ApplicationStatusSubmitted, successor: models.StepCallbackOspSubmitted},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			process, application := f.seedApplication(ctx, t, testCase.status, nil)

			f.provisioning.On("SynchronizeUser", mock.Anything, application.ExternalUserID).Return(nil)

			result, err := f.handlers[models.StepSynchronizeUser].Execute(ctx, process.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StepStatusDone, result.Status)
			assert.Equal(t, []models.StepType{testCase.successor}, result.Successors)
		})
	}
}

func TestSynchronizeUser_SkippedWithoutExternalUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, _ := f.seedApplication(ctx, t, models.ApplicationStatusSubmitted, func(a *models.CompanyApplication) {
		a.ExternalUserID = ""
	})

	result, err := f.handlers[models.StepSynchronizeUser].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusSkipped, result.Status)
	f.provisioning.AssertNotCalled(t, "SynchronizeUser", mock.Anything, mock.Anything)
}

func TestOspCallback_ReportsStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, application := f.seedApplication(ctx, t, models.ApplicationStatusApproved, nil)

	f.callback.On("NotifyOsp", mock.Anything, application.OspCallbackURL, application.ID, "APPROVED").Return(nil)

	result, err := f.handlers[models.StepCallbackOspApproved].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusDone, result.Status)
	assert.Empty(t, result.Successors)
	f.callback.AssertExpectations(t)
}

func TestOspCallback_SkippedWithoutURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, _ := f.seedApplication(ctx, t, models.ApplicationStatusDeclined, func(a *models.CompanyApplication) {
		a.OspCallbackURL = ""
	})

	result, err := f.handlers[models.StepCallbackOspDeclined].Execute(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusSkipped, result.Status)
	f.callback.AssertNotCalled(t, "NotifyOsp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOspCallback_FailurePropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	process, application := f.seedApplication(ctx, t, models.ApplicationStatusSubmitted, nil)

	f.callback.On("NotifyOsp", mock.Anything, application.OspCallbackURL, application.ID, "SUBMITTED").
		Return(assert.AnError)

	_, err := f.handlers[models.StepCallbackOspSubmitted].Execute(ctx, process.ID)
	assert.Error(t, err)
}
