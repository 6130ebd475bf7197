// Package subscription implements the step handlers of the offer subscription
// activation chain.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/protocol"
)

const (
	notificationTopic      = "SUBSCRIPTION_ACTIVATION"
	activationMailTemplate = "subscription-activated"
)

// Dependencies carries everything the subscription handlers need.
type Dependencies struct {
	Persistence  persistence.Persistence
	Provisioning clients.Provisioning
	Notifier     clients.Notifier
	Mailer       clients.Mailer
	Callback     clients.Callback
	Logger       *slog.Logger
}

// Handlers returns the handler set for the offer subscription chain, in chain
// order.
func Handlers(deps Dependencies) []protocol.StepHandler {
	deps.Logger = deps.Logger.With("module", "subscription_handlers")

	return []protocol.StepHandler{
		&clientCreationHandler{deps},
		&technicalUserCreationHandler{deps},
		&singleInstanceDetailsHandler{deps},
		&activateSubscriptionHandler{deps},
		&providerCallbackHandler{deps},
	}
}

func loadSubscription(ctx context.Context, deps Dependencies, processID string) (*models.OfferSubscription, error) {
	subscription, err := deps.Persistence.Subscriptions().GetByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription for process %s: %w", processID, err)
	}

	return subscription, nil
}

// clientName derives the deterministic OAuth client name for a subscription,
// so a crashed step finds its own half-done work on the next run.
func clientName(subscription *models.OfferSubscription) string {
	return "sub-" + subscription.ID
}

type clientCreationHandler struct {
	deps Dependencies
}

func (h *clientCreationHandler) StepType() models.StepType {
	return models.StepClientCreation
}

func (h *clientCreationHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	subscription, err := loadSubscription(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	name := clientName(subscription)

	// Lookup before create: a previous attempt may have registered the
	// client and crashed before finalizing the step.
	client, err := h.deps.Provisioning.GetClientByName(ctx, name)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if client == nil {
		client, err = h.deps.Provisioning.CreateClient(ctx, name, subscription.InstanceURL)
		if err != nil {
			return protocol.StepResult{}, err
		}

		h.deps.Logger.InfoContext(ctx, "Created OAuth client", "client_id", client.ID, "subscription_id", subscription.ID)
	} else {
		h.deps.Logger.InfoContext(ctx, "Reusing existing OAuth client", "client_id", client.ID, "subscription_id", subscription.ID)
	}

	subscription.ClientID = &client.ID

	if err := h.deps.Persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepTechnicalUserCreation), nil
}

type technicalUserCreationHandler struct {
	deps Dependencies
}

func (h *technicalUserCreationHandler) StepType() models.StepType {
	return models.StepTechnicalUserCreation
}

func (h *technicalUserCreationHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	subscription, err := loadSubscription(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if subscription.TechnicalUser != nil {
		return protocol.Done(models.StepSingleInstanceDetails), nil
	}

	user, err := h.deps.Provisioning.CreateTechnicalUser(ctx, subscription.CompanyID, "tu-"+subscription.ID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	subscription.TechnicalUser = &user.ID

	if err := h.deps.Persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepSingleInstanceDetails), nil
}

type singleInstanceDetailsHandler struct {
	deps Dependencies
}

func (h *singleInstanceDetailsHandler) StepType() models.StepType {
	return models.StepSingleInstanceDetails
}

func (h *singleInstanceDetailsHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	subscription, err := loadSubscription(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if !subscription.SingleInstance {
		result := protocol.Skipped("subscription is not single instance")
		result.Successors = []models.StepType{models.StepActivateSubscription}

		return result, nil
	}

	if err := h.deps.Provisioning.CreateInstanceDetails(ctx, subscription.ID, subscription.InstanceURL); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(models.StepActivateSubscription), nil
}

type activateSubscriptionHandler struct {
	deps Dependencies
}

func (h *activateSubscriptionHandler) StepType() models.StepType {
	return models.StepActivateSubscription
}

func (h *activateSubscriptionHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	subscription, err := loadSubscription(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	subscription.Status = models.SubscriptionStatusActive

	if err := h.deps.Persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return protocol.StepResult{}, err
	}

	content := fmt.Sprintf("Your subscription for %s is now active", subscription.OfferName)

	if err := h.deps.Notifier.Notify(ctx, subscription.RequesterID, notificationTopic, content); err != nil {
		return protocol.StepResult{}, err
	}

	if subscription.RequesterEmail != "" {
		err := h.deps.Mailer.Send(ctx, subscription.RequesterEmail, activationMailTemplate, map[string]string{
			"offer_name": subscription.OfferName,
		})
		if err != nil {
			return protocol.StepResult{}, err
		}
	}

	return protocol.Done(models.StepProviderCallback), nil
}

type providerCallbackHandler struct {
	deps Dependencies
}

func (h *providerCallbackHandler) StepType() models.StepType {
	return models.StepProviderCallback
}

func (h *providerCallbackHandler) Execute(ctx context.Context, processID string) (protocol.StepResult, error) {
	subscription, err := loadSubscription(ctx, h.deps, processID)
	if err != nil {
		return protocol.StepResult{}, err
	}

	if subscription.CallbackURL == "" {
		return protocol.Skipped("no callback url registered"), nil
	}

	payload := clients.CallbackPayload{
		SubscriptionID: subscription.ID,
		Status:         string(subscription.Status),
	}

	if subscription.ClientID != nil {
		payload.ClientID = *subscription.ClientID
	}

	if subscription.TechnicalUser != nil {
		payload.TechnicalUser = *subscription.TechnicalUser
	}

	if err := h.deps.Callback.NotifyProvider(ctx, subscription.CallbackURL, payload); err != nil {
		return protocol.StepResult{}, err
	}

	return protocol.Done(), nil
}
