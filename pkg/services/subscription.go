package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/events"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

// Subscription implements the offer subscription business operations.
type Subscription struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	notifier    clients.Notifier
	mailer      clients.Mailer
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewSubscription(
	p persistence.Persistence,
	publisher eventbus.EventPublisher,
	notifier clients.Notifier,
	mailer clients.Mailer,
	logger *slog.Logger,
) *Subscription {
	return &Subscription{
		persistence: p,
		publisher:   publisher,
		notifier:    notifier,
		mailer:      mailer,
		validate:    validator.New(),
		logger:      logger.With("module", "subscription_service"),
	}
}

// RequestSubscriptionRequest contains the input for a new offer subscription.
type RequestSubscriptionRequest struct {
	OfferID        string `json:"offer_id"         validate:"required"`
	OfferName      string `json:"offer_name"       validate:"required"`
	CompanyID      string `json:"company_id"       validate:"required"`
	RequesterID    string `json:"requester_id"     validate:"required"`
	RequesterEmail string `json:"requester_email"  validate:"omitempty,email"`
	SingleInstance bool   `json:"single_instance"`
	InstanceURL    string `json:"instance_url"     validate:"omitempty,url"`
	CallbackURL    string `json:"callback_url"     validate:"omitempty,url"`
}

// RequestSubscription creates a pending subscription, opens its activation
// process and seeds the first step. The step-enqueued event wakes up a worker.
func (s *Subscription) RequestSubscription(ctx context.Context, req RequestSubscriptionRequest) (*models.OfferSubscription, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ControllerArgumentError{Parameter: "body", Message: err.Error()}
	}

	process := &models.Process{Type: models.ProcessTypeOfferSubscription}
	if err := s.persistence.Processes().CreateProcess(ctx, process); err != nil {
		return nil, fmt.Errorf("failed to create process: %w", err)
	}

	subscription := &models.OfferSubscription{
		OfferID:        req.OfferID,
		OfferName:      req.OfferName,
		CompanyID:      req.CompanyID,
		RequesterID:    req.RequesterID,
		RequesterEmail: req.RequesterEmail,
		Status:         models.SubscriptionStatusPending,
		SingleInstance: req.SingleInstance,
		InstanceURL:    req.InstanceURL,
		CallbackURL:    req.CallbackURL,
		ProcessID:      &process.ID,
	}

	if err := s.persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	step, err := s.persistence.Processes().EnqueueStep(ctx, process.ID, models.StepClientCreation)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue first step: %w", err)
	}

	s.logger.InfoContext(ctx, "Subscription requested",
		"subscription_id", subscription.ID,
		"process_id", process.ID,
		"offer_id", subscription.OfferID,
	)

	publishProcessStarted(ctx, s.publisher, s.logger, process)
	publishStepEnqueued(ctx, s.publisher, s.logger, step)

	return subscription, nil
}

// ActivateSubscriptionRequest identifies the caller performing the synchronous
// activation. CompanyID is the caller's company as resolved by the portal
// gateway.
type ActivateSubscriptionRequest struct {
	CompanyUserID string `json:"company_user_id"`
	CompanyID     string `json:"company_id"`
}

// ActivateSubscription is the synchronous activation path used by offer
// providers. It drives the process through the same ACTIVATE_SUBSCRIPTION
// transition the asynchronous chain uses, so the process never carries more
// than one open step type.
func (s *Subscription) ActivateSubscription(ctx context.Context, subscriptionID string, req ActivateSubscriptionRequest) (*models.OfferSubscription, error) {
	if req.CompanyUserID == "" {
		return nil, &ControllerArgumentError{Parameter: "CompanyUserId", Message: "caller user id is required"}
	}

	if req.CompanyID == "" {
		return nil, &ControllerArgumentError{Parameter: "CompanyId", Message: "caller company id is required"}
	}

	subscription, err := s.persistence.Subscriptions().GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if req.CompanyID != subscription.CompanyID {
		return nil, &ControllerArgumentError{
			Parameter: "CompanyUserId",
			Message:   fmt.Sprintf("user %s does not belong to the subscribing company", req.CompanyUserID),
		}
	}

	if subscription.Status != models.SubscriptionStatusPending {
		return nil, &ConflictError{
			Parameter: "Status",
			Message:   fmt.Sprintf("subscription is %s, only PENDING subscriptions can be activated", subscription.Status),
		}
	}

	processID, err := processIDOf(subscription.ProcessID)
	if err != nil {
		return nil, err
	}

	step, err := todoStepOfType(ctx, s.persistence.Processes(), processID, models.StepActivateSubscription)
	if errors.Is(err, persistence.ErrStepNotFound) {
		return nil, &ConflictError{
			Parameter: "ProcessStep",
			Message:   "process has not reached the activation step yet",
		}
	}

	if err != nil {
		return nil, err
	}

	// Nothing is persisted before the collaborator calls succeed: a failed
	// notification leaves the subscription PENDING and the step open, so the
	// caller can simply retry.
	content := fmt.Sprintf("Your subscription for %s is now active", subscription.OfferName)

	if err := s.notifier.Notify(ctx, subscription.RequesterID, "SUBSCRIPTION_ACTIVATION", content); err != nil {
		return nil, fmt.Errorf("failed to notify requester: %w", err)
	}

	if subscription.RequesterEmail != "" {
		err := s.mailer.Send(ctx, subscription.RequesterEmail, "subscription-activated", map[string]string{
			"offer_name": subscription.OfferName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to send activation mail: %w", err)
		}
	}

	subscription.Status = models.SubscriptionStatusActive

	if err := s.persistence.Subscriptions().Save(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	finalized, err := s.persistence.Processes().FinalizeStep(ctx, step.ID, models.StepStatusDone, "", []models.StepType{models.StepProviderCallback})
	if err != nil {
		// The step stays TODO: the asynchronous chain picks the activation
		// up again and enqueues the provider callback itself.
		return nil, fmt.Errorf("failed to finalize activation step: %w", err)
	}

	if finalized {
		if callbackStep, err := todoStepOfType(ctx, s.persistence.Processes(), processID, models.StepProviderCallback); err == nil {
			publishStepEnqueued(ctx, s.publisher, s.logger, callbackStep)
		}
	}

	s.logger.InfoContext(ctx, "Subscription activated", "subscription_id", subscription.ID, "company_user_id", req.CompanyUserID)

	return subscription, nil
}

func publishProcessStarted(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, process *models.Process) {
	event := events.ProcessStarted{
		BaseEvent:   events.NewBaseEvent(events.ProcessStartedEvent, process.ID),
		ProcessType: process.Type,
	}

	if err := publisher.Publish(ctx, process.ID, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish process started event", "error", err, "process_id", process.ID)
	}
}

func publishStepEnqueued(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, step *models.ProcessStep) {
	event := events.StepEnqueued{
		BaseEvent: events.NewBaseEvent(events.StepEnqueuedEvent, step.ProcessID),
		StepID:    step.ID,
		StepType:  step.Type,
	}

	if err := publisher.Publish(ctx, step.ProcessID, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish step enqueued event", "error", err, "process_id", step.ProcessID)
	}
}
