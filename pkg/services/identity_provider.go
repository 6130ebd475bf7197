package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

// IdentityProvider implements the identity provider federation operations.
type IdentityProvider struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewIdentityProvider(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *IdentityProvider {
	return &IdentityProvider{
		persistence: p,
		publisher:   publisher,
		validate:    validator.New(),
		logger:      logger.With("module", "identity_provider_service"),
	}
}

// CreateSetupRequest contains the input for a new identity provider setup.
type CreateSetupRequest struct {
	CompanyID   string `json:"company_id"    validate:"required"`
	CompanyName string `json:"company_name"  validate:"required"`
	Alias       string `json:"alias"         validate:"required,min=3"`
	RedirectURL string `json:"redirect_url"  validate:"omitempty,url"`
	InviteEmail string `json:"invite_email"  validate:"omitempty,email"`
}

// CreateSetup records the identity provider, opens the federation setup
// process and seeds the service account step.
func (s *IdentityProvider) CreateSetup(ctx context.Context, req CreateSetupRequest) (*models.IdentityProvider, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ControllerArgumentError{Parameter: "body", Message: err.Error()}
	}

	process := &models.Process{Type: models.ProcessTypeIdentityProviderSetup}
	if err := s.persistence.Processes().CreateProcess(ctx, process); err != nil {
		return nil, fmt.Errorf("failed to create process: %w", err)
	}

	provider := &models.IdentityProvider{
		CompanyID:   req.CompanyID,
		CompanyName: req.CompanyName,
		Alias:       req.Alias,
		RedirectURL: req.RedirectURL,
		InviteEmail: req.InviteEmail,
		ProcessID:   &process.ID,
	}

	if err := s.persistence.IdentityProviders().Save(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to save identity provider: %w", err)
	}

	step, err := s.persistence.Processes().EnqueueStep(ctx, process.ID, models.StepCreateSharedIdpServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue first step: %w", err)
	}

	s.logger.InfoContext(ctx, "Identity provider setup started",
		"identity_provider_id", provider.ID,
		"process_id", process.ID,
		"alias", provider.Alias,
	)

	publishProcessStarted(ctx, s.publisher, s.logger, process)
	publishStepEnqueued(ctx, s.publisher, s.logger, step)

	return provider, nil
}
