package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

type subscriptionRepository Persistence

func (r *subscriptionRepository) Save(ctx context.Context, subscription *models.OfferSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := stampEntity(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt); err != nil {
		return err
	}

	stored := *subscription
	r.subscriptions[subscription.ID] = &stored

	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*models.OfferSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscription, ok := r.subscriptions[id]
	if !ok {
		return nil, persistence.ErrSubscriptionNotFound
	}

	copied := *subscription

	return &copied, nil
}

func (r *subscriptionRepository) GetByProcessID(ctx context.Context, processID string) (*models.OfferSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, subscription := range r.subscriptions {
		if subscription.ProcessID != nil && *subscription.ProcessID == processID {
			copied := *subscription

			return &copied, nil
		}
	}

	return nil, persistence.ErrSubscriptionNotFound
}

type applicationRepository Persistence

func (r *applicationRepository) Save(ctx context.Context, application *models.CompanyApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := stampEntity(&application.ID, &application.CreatedAt, &application.UpdatedAt); err != nil {
		return err
	}

	stored := *application
	r.applications[application.ID] = &stored

	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*models.CompanyApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	application, ok := r.applications[id]
	if !ok {
		return nil, persistence.ErrApplicationNotFound
	}

	copied := *application

	return &copied, nil
}

func (r *applicationRepository) GetByProcessID(ctx context.Context, processID string) (*models.CompanyApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, application := range r.applications {
		if application.ProcessID != nil && *application.ProcessID == processID {
			copied := *application

			return &copied, nil
		}
	}

	return nil, persistence.ErrApplicationNotFound
}

type identityProviderRepository Persistence

func (r *identityProviderRepository) Save(ctx context.Context, provider *models.IdentityProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := stampEntity(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt); err != nil {
		return err
	}

	stored := *provider
	r.providers[provider.ID] = &stored

	return nil
}

func (r *identityProviderRepository) GetByID(ctx context.Context, id string) (*models.IdentityProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.providers[id]
	if !ok {
		return nil, persistence.ErrIdentityProviderNotFound
	}

	copied := *provider

	return &copied, nil
}

func (r *identityProviderRepository) GetByProcessID(ctx context.Context, processID string) (*models.IdentityProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, provider := range r.providers {
		if provider.ProcessID != nil && *provider.ProcessID == processID {
			copied := *provider

			return &copied, nil
		}
	}

	return nil, persistence.ErrIdentityProviderNotFound
}

func stampEntity(id *string, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()

	if *id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return err
		}

		*id = generated.String()
	}

	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now

	return nil
}
