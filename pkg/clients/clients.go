// Package clients defines the collaborator services the step handlers call
// and their HTTP implementations.
package clients

import "context"

// Client is an OAuth client registered with the provisioning service.
type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RedirectURL string `json:"redirect_url"`
}

// ServiceAccount is a machine identity created on the shared identity
// provider realm.
type ServiceAccount struct {
	ID       string   `json:"id"`
	ClientID string   `json:"client_id"`
	Secret   string   `json:"secret,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// TechnicalUser is a service user bound to a company's subscription.
type TechnicalUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provisioning covers the identity and client management operations the step
// handlers delegate to. All calls are expected to be idempotent on the remote
// side or guarded by a lookup before the write.
type Provisioning interface {
	CreateClient(ctx context.Context, name, redirectURL string) (*Client, error)
	// GetClientByName returns nil without error when no client carries the name.
	GetClientByName(ctx context.Context, name string) (*Client, error)
	CreateTechnicalUser(ctx context.Context, companyID, name string) (*TechnicalUser, error)
	CreateInstanceDetails(ctx context.Context, subscriptionID, instanceURL string) error

	CreateServiceAccount(ctx context.Context, alias string) (*ServiceAccount, error)
	UpdateCentralIDPURLs(ctx context.Context, alias, redirectURL string) error
	CreateOrgMapper(ctx context.Context, alias, companyName string) (string, error)
	CreateRealmClient(ctx context.Context, alias string) (string, error)
	EnableIdentityProvider(ctx context.Context, alias string) error
	CreateDatabaseIdentityProvider(ctx context.Context, alias, companyID string) error
	CreateUser(ctx context.Context, alias, email string) error

	SynchronizeUser(ctx context.Context, externalUserID string) error
}

// Notifier delivers in-portal notifications.
type Notifier interface {
	Notify(ctx context.Context, recipientID, topic, content string) error
}

// Mailer sends templated emails.
type Mailer interface {
	Send(ctx context.Context, recipient, template string, parameters map[string]string) error
}

// CallbackPayload is posted to an app provider when its subscription
// activates.
type CallbackPayload struct {
	SubscriptionID string `json:"subscription_id"`
	ClientID       string `json:"client_id,omitempty"`
	TechnicalUser  string `json:"technical_user_id,omitempty"`
	Status         string `json:"status"`
}

// Callback pushes process outcomes to externally registered callback URLs.
type Callback interface {
	NotifyProvider(ctx context.Context, callbackURL string, payload CallbackPayload) error
	NotifyOsp(ctx context.Context, callbackURL, applicationID, status string) error
}
