// Package identityprovider implements the step handlers of the identity
// provider federation setup chain.
package identityprovider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/protocol"
)

// Dependencies carries everything the identity provider handlers need.
type Dependencies struct {
	Persistence  persistence.Persistence
	Provisioning clients.Provisioning
	Logger       *slog.Logger
}

// Handlers returns the handler set for the identity provider chain, in chain
// order.
func Handlers(deps Dependencies) []protocol.StepHandler {
	deps.Logger = deps.Logger.With("module", "identityprovider_handlers")

	return []protocol.StepHandler{
		&serviceAccountHandler{deps},
		&centralURLsHandler{deps},
		&orgMapperHandler{deps},
		&realmClientHandler{deps},
		&enableHandler{deps},
		&databaseIdpHandler{deps},
		&invitationHandler{deps},
	}
}

func loadProvider(ctx context.Context, deps Dependencies, processID string) (*models.IdentityProvider, error) {
	provider, err := deps.Persistence.IdentityProviders().GetByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity provider for process %s: %w", processID, err)
	}

	return provider, nil
}

type serviceAccountHandler struct {
	deps Dependencies
}

func (h *serviceAccountHandler) StepType() models.StepType {
	return models.StepCreateSharedIdpServiceAccount
}

func (h *serviceAccountHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	// A stored account ID means a previous attempt already created it.
	if provider.ServiceAccount == nil {
		account, err := h.deps.Provisioning.CreateServiceAccount(ctx, provider.Alias)
		if err != nil {
			return protocol.StepResult{}, err
		}

		provider.ServiceAccount = &account.ID

		if err := h.deps.Persistence.IdentityProviders().Save(ctx, provider); err != nil {
			return protocol.StepResult{}, err
		}

		h.deps.Logger.InfoContext(ctx, "Created shared IdP service account",
			"alias", provider.Alias,
			"account_id", account.ID,
			"roles", account.Roles,
		)
	}

	return protocol.Done(models.StepUpdateCentralIdpURLs), nil
}

type centralURLsHandler struct {
	deps Dependencies
}

func (h *centralURLsHandler) StepType() models.StepType {
	return models.StepUpdateCentralIdpURLs
}

func (h *centralURLsHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if err := h.deps.Provisioning.UpdateCentralIDPURLs(ctx, provider.Alias, provider.RedirectURL); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepCreateCentralIdpOrgMapper), nil
}

type orgMapperHandler struct {
	deps Dependencies
}

func (h *orgMapperHandler) StepType() models.StepType {
	return models.StepCreateCentralIdpOrgMapper
}

func (h *orgMapperHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if provider.OrgMapperID == nil {
		mapperID, err := h.deps.Provisioning.CreateOrgMapper(ctx, provider.Alias, provider.CompanyName)
		if err != nil {
			return protocol.StepResult{}, err
		}

		provider.OrgMapperID = &mapperID

		if err := h.deps.Persistence.IdentityProviders().Save(ctx, provider); err != nil {
			return protocol.StepResult{}, err
		}
	}

	return protocol.Done(models.StepCreateSharedRealmIdpClient), nil
}

type realmClientHandler struct {
	deps Dependencies
}

func (h *realmClientHandler) StepType() models.StepType {
	return models.StepCreateSharedRealmIdpClient
}

func (h *realmClientHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if provider.RealmClientID == nil {
		clientID, err := h.deps.Provisioning.CreateRealmClient(ctx, provider.Alias)
		if err != nil {
			return protocol.StepResult{}, err
		}

		provider.RealmClientID = &clientID

		if err := h.deps.Persistence.IdentityProviders().Save(ctx, provider); err != nil {
			return protocol.StepResult{}, err
		}
	}

	return protocol.Done(models.StepEnableCentralIdp), nil
}

type enableHandler struct {
	deps Dependencies
}

func (h *enableHandler) StepType() models.StepType {
	return models.StepEnableCentralIdp
}

func (h *enableHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if err := h.deps.Provisioning.EnableIdentityProvider(ctx, provider.Alias); err != nil {
		return protocol.StepResult{}, err
	}

	provider.Enabled = true

	if err := h.deps.Persistence.IdentityProviders().Save(ctx, provider); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepCreateDatabaseIdp), nil
}

type databaseIdpHandler struct {
	deps Dependencies
}

func (h *databaseIdpHandler) StepType() models.StepType {
	return models.StepCreateDatabaseIdp
}

func (h *databaseIdpHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if err := h.deps.Provisioning.CreateDatabaseIdentityProvider(ctx, provider.Alias, provider.CompanyID); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepInvitationCreateUser), nil
}

type invitationHandler struct {
	deps Dependencies
}

func (h *invitationHandler) StepType() models.StepType {
	return models.StepInvitationCreateUser
}

func (h *invitationHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	provider, err := loadProvider(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if provider.InviteEmail == "" {
		return protocol.Skipped("no invite email configured"), nil
	}

	if err := h.deps.Provisioning.CreateUser(ctx, provider.Alias, provider.InviteEmail); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(), nil
}
