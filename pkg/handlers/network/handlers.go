// Package network implements the step handlers of the company application
// onboarding chain.
package network

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/protocol"
)

// Dependencies carries everything the network handlers need.
type Dependencies struct {
	Persistence  persistence.Persistence
	Provisioning clients.Provisioning
	Callback     clients.Callback
	Logger       *slog.Logger
}

// Handlers returns the handler set for the network registration chain.
func Handlers(deps Dependencies) []protocol.StepHandler {
	deps.Logger = deps.Logger.With("module", "network_handlers")

	return []protocol.StepHandler{
		&synchronizeUserHandler{deps},
		&ospCallbackHandler{deps, models.StepCallbackOspApproved, string(models.ApplicationStatusApproved)},
		&ospCallbackHandler{deps, models.StepCallbackOspDeclined, string(models.ApplicationStatusDeclined)},
		&ospCallbackHandler{deps, models.StepCallbackOspSubmitted, string(models.ApplicationStatusSubmitted)},
	}
}

func loadApplication(ctx context.Context, deps Dependencies, processID string) (*models.CompanyApplication, error) {
	application, err := deps.Persistence.Applications().GetByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company application for process %s: %w", processID, err)
	}

	return application, nil
}

type synchronizeUserHandler struct {
	deps Dependencies
}

func (h *synchronizeUserHandler) StepType() models.StepType {
	return models.StepSynchronizeUser
}

// Execute mirrors the onboarding user into the central identity provider and
// queues the callback matching the application's current status.
func (h *synchronizeUserHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	application, err := loadApplication(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if application.ExternalUserID == "" {
		return protocol.Skipped("application has no external user to synchronize"), nil
	}

	if err := h.deps.Provisioning.SynchronizeUser(ctx, application.ExternalUserID); err != nil {
		return protocol.StepResult{}, err
	}

	switch application.Status {
	case models.ApplicationStatusApproved:
		return protocol.Done(models.StepCallbackOspApproved), nil
	case models.ApplicationStatusDeclined:
		return protocol.Done(models.StepCallbackOspDeclined), nil
	default:
		return protocol.Done(models.StepCallbackOspSubmitted), nil
	}
}

// ospCallbackHandler reports one application status to the onboarding service
// provider. One handler instance per terminal step type.
type ospCallbackHandler struct {
	deps     Dependencies
	stepType models.StepType
	status   string
}

func (h *ospCallbackHandler) StepType() models.StepType {
	return h.stepType
}

func (h *ospCallbackHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	application, err := loadApplication(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if application.OspCallbackURL == "" {
		return protocol.Skipped("no osp callback url registered"), nil
	}

	if err := h.deps.Callback.NotifyOsp(ctx, application.OspCallbackURL, application.ID, h.status); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(), nil
}
