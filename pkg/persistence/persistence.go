// Package persistence provides the data storage abstraction for processes,
// steps and the business entities attached to them.
package persistence

import (
	"context"
	"time"

	"github.com/venohr/stepflow/pkg/models"
)

type Persistence interface {
	Processes() ProcessRepository
	Subscriptions() SubscriptionRepository
	Applications() ApplicationRepository
	IdentityProviders() IdentityProviderRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ProcessRepository owns the durable process/step state. It is the single
// shared mutable resource of the engine: every transition is a
// read-modify-write against one process's step set, guarded by the
// implementation's transaction or optimistic-concurrency check.
type ProcessRepository interface {
	CreateProcess(ctx context.Context, process *models.Process) error
	ProcessByID(ctx context.Context, id string) (*models.Process, error)

	// Steps returns all steps of a process ordered by creation time.
	Steps(ctx context.Context, processID string) ([]*models.ProcessStep, error)

	// EnqueueStep appends a TODO step. When a TODO step of the same type
	// already exists for the process the new row is recorded as DUPLICATE:
	// duplicate enqueues collapse to one logical unit of work.
	EnqueueStep(ctx context.Context, processID string, stepType models.StepType) (*models.ProcessStep, error)

	// FinalizeStep transitions a TODO step to its terminal status and inserts
	// the successor steps in the same transaction, so a completion and its
	// successors are always observed together. Returns false without touching
	// anything when the step is no longer TODO (another worker won the race).
	FinalizeStep(ctx context.Context, stepID string, status models.StepStatus, message string, successors []models.StepType) (bool, error)

	// RetriggerStep re-arms a FAILED or SKIPPED step of the given type back to
	// TODO. ErrStepNotFound when no step of that type exists,
	// ErrStepNotRetriggerable when the step is in any other status.
	RetriggerStep(ctx context.Context, processID string, stepType models.StepType) error

	// PendingProcesses returns ids of processes that still have a TODO step
	// created before the cutoff. Used by the worker's recovery poller.
	PendingProcesses(ctx context.Context, before time.Time) ([]string, error)
}

type SubscriptionRepository interface {
	Save(ctx context.Context, subscription *models.OfferSubscription) error
	GetByID(ctx context.Context, id string) (*models.OfferSubscription, error)
	GetByProcessID(ctx context.Context, processID string) (*models.OfferSubscription, error)
}

type ApplicationRepository interface {
	Save(ctx context.Context, application *models.CompanyApplication) error
	GetByID(ctx context.Context, id string) (*models.CompanyApplication, error)
	GetByProcessID(ctx context.Context, processID string) (*models.CompanyApplication, error)
}

type IdentityProviderRepository interface {
	Save(ctx context.Context, provider *models.IdentityProvider) error
	GetByID(ctx context.Context, id string) (*models.IdentityProvider, error)
	GetByProcessID(ctx context.Context, processID string) (*models.IdentityProvider, error)
}
