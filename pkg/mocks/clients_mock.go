// Package mocks provides testify mocks for collaborator and messaging
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/venohr/stepflow/pkg/clients"
)

// MockProvisioning is a mock implementation of clients.Provisioning.
type MockProvisioning struct {
	mock.Mock
}

func (m *MockProvisioning) CreateClient(ctx context.Context, name, redirectURL string) (*clients.Client, error) {
	args := m.Called(ctx, name, redirectURL)

	client, _ := args.Get(0).(*clients.Client)

	return client, args.Error(1)
}

func (m *MockProvisioning) GetClientByName(ctx context.Context, name string) (*clients.Client, error) {
	args := m.Called(ctx, name)

	client, _ := args.Get(0).(*clients.Client)

	return client, args.Error(1)
}

func (m *MockProvisioning) CreateTechnicalUser(ctx context.Context, companyID, name string) (*clients.TechnicalUser, error) {
	args := m.Called(ctx, companyID, name)

	user, _ := args.Get(0).(*clients.TechnicalUser)

	return user, args.Error(1)
}

func (m *MockProvisioning) CreateInstanceDetails(ctx context.Context, subscriptionID, instanceURL string) error {
	args := m.Called(ctx, subscriptionID, instanceURL)

	return args.Error(0)
}

func (m *MockProvisioning) CreateServiceAccount(ctx context.Context, alias string) (*clients.ServiceAccount, error) {
	args := m.Called(ctx, alias)

	account, _ := args.Get(0).(*clients.ServiceAccount)

	return account, args.Error(1)
}

func (m *MockProvisioning) UpdateCentralIDPURLs(ctx context.Context, alias, redirectURL string) error {
	args := m.Called(ctx, alias, redirectURL)

	return args.Error(0)
}

func (m *MockProvisioning) CreateOrgMapper(ctx context.Context, alias, companyName string) (string, error) {
	args := m.Called(ctx, alias, companyName)

	return args.String(0), args.Error(1)
}

func (m *MockProvisioning) CreateRealmClient(ctx context.Context, alias string) (string, error) {
	args := m.Called(ctx, alias)

	return args.String(0), args.Error(1)
}

func (m *MockProvisioning) EnableIdentityProvider(ctx context.Context, alias string) error {
	args := m.Called(ctx, alias)

	return args.Error(0)
}

func (m *MockProvisioning) CreateDatabaseIdentityProvider(ctx context.Context, alias, companyID string) error {
	args := m.Called(ctx, alias, companyID)

	return args.Error(0)
}

func (m *MockProvisioning) CreateUser(ctx context.Context, alias, email string) error {
	args := m.Called(ctx, alias, email)

	return args.Error(0)
}

func (m *MockProvisioning) SynchronizeUser(ctx context.Context, externalUserID string) error {
	args := m.Called(ctx, externalUserID)

	return args.Error(0)
}

// MockNotifier is a mock implementation of clients.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipientID, topic, content string) error {
	args := m.Called(ctx, recipientID, topic, content)

	return args.Error(0)
}

// MockMailer is a mock implementation of clients.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, recipient, template string, parameters map[string]string) error {
	args := m.Called(ctx, recipient, template, parameters)

	return args.Error(0)
}

// MockCallback is a mock implementation of clients.Callback.
type MockCallback struct {
	mock.Mock
}

func (m *MockCallback) NotifyProvider(ctx context.Context, callbackURL string, payload clients.CallbackPayload) error {
	args := m.Called(ctx, callbackURL, payload)

	return args.Error(0)
}

func (m *MockCallback) NotifyOsp(ctx context.Context, callbackURL, applicationID, status string) error {
	args := m.Called(ctx, callbackURL, applicationID, status)

	return args.Error(0)
}
