package cmd

import (
	"log/slog"

	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/handlers/identityprovider"
	"github.com/venohr/stepflow/pkg/handlers/network"
	"github.com/venohr/stepflow/pkg/handlers/subscription"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/registry"
)

// Collaborators groups the external service clients the step handlers talk to.
type Collaborators struct {
	Provisioning clients.Provisioning
	Notifier     clients.Notifier
	Mailer       clients.Mailer
	Callback     clients.Callback
}

// NewCollaborators builds HTTP clients against the configured collaborator
// base URLs.
func NewCollaborators(provisioningURL, notificationURL, mailingURL string, logger *slog.Logger) Collaborators {
	return Collaborators{
		Provisioning: clients.NewHTTPProvisioning(provisioningURL, logger),
		Notifier:     clients.NewHTTPNotifier(notificationURL, logger),
		Mailer:       clients.NewHTTPMailer(mailingURL, logger),
		Callback:     clients.NewHTTPCallback(logger),
	}
}

// NewRegistry wires every step handler of the three workflow families and
// refuses incomplete wiring.
func NewRegistry(p persistence.Persistence, collaborators Collaborators, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	for _, handler := range subscription.Handlers(subscription.Dependencies{
		Persistence:  p,
		Provisioning: collaborators.Provisioning,
		Notifier:     collaborators.Notifier,
		Mailer:       collaborators.Mailer,
		Callback:     collaborators.Callback,
		Logger:       logger,
	}) {
		reg.Register(handler)
	}

	for _, handler := range identityprovider.Handlers(identityprovider.Dependencies{
		Persistence:  p,
		Provisioning: collaborators.Provisioning,
		Logger:       logger,
	}) {
		reg.Register(handler)
	}

	for _, handler := range network.Handlers(network.Dependencies{
		Persistence:  p,
		Provisioning: collaborators.Provisioning,
		Callback:     collaborators.Callback,
		Logger:       logger,
	}) {
		reg.Register(handler)
	}

	if err := reg.Validate(); err != nil {
		panic(err)
	}

	return reg
}
