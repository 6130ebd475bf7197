// Package memory provides an in-memory persistence implementation used by
// unit tests and local development. Transitions hold a single mutex, which
// gives the same atomicity guarantees the PostgreSQL implementation gets from
// transactions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

type Persistence struct {
	mu sync.Mutex

	processes     map[string]*models.Process
	steps         map[string][]*models.ProcessStep // keyed by process id
	subscriptions map[string]*models.OfferSubscription
	applications  map[string]*models.CompanyApplication
	providers     map[string]*models.IdentityProvider
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		processes:     make(map[string]*models.Process),
		steps:         make(map[string][]*models.ProcessStep),
		subscriptions: make(map[string]*models.OfferSubscription),
		applications:  make(map[string]*models.CompanyApplication),
		providers:     make(map[string]*models.IdentityProvider),
	}
}

func (p *Persistence) Processes() persistence.ProcessRepository {
	return (*processRepository)(p)
}

func (p *Persistence) Subscriptions() persistence.SubscriptionRepository {
	return (*subscriptionRepository)(p)
}

func (p *Persistence) Applications() persistence.ApplicationRepository {
	return (*applicationRepository)(p)
}

func (p *Persistence) IdentityProviders() persistence.IdentityProviderRepository {
	return (*identityProviderRepository)(p)
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}

type processRepository Persistence

func (r *processRepository) CreateProcess(ctx context.Context, process *models.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if process.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		process.ID = id.String()
	}

	if process.CreatedAt.IsZero() {
		process.CreatedAt = time.Now().UTC()
	}

	stored := *process
	r.processes[process.ID] = &stored

	return nil
}

func (r *processRepository) ProcessByID(ctx context.Context, id string) (*models.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	process, ok := r.processes[id]
	if !ok {
		return nil, persistence.NewProcessError("ProcessByID", id, persistence.ErrProcessNotFound)
	}

	copied := *process

	return &copied, nil
}

func (r *processRepository) Steps(ctx context.Context, processID string) ([]*models.ProcessStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.processes[processID]; !ok {
		return nil, persistence.NewProcessError("Steps", processID, persistence.ErrProcessNotFound)
	}

	return copySteps(r.steps[processID]), nil
}

func (r *processRepository) EnqueueStep(ctx context.Context, processID string, stepType models.StepType) (*models.ProcessStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.processes[processID]; !ok {
		return nil, persistence.NewProcessError("EnqueueStep", processID, persistence.ErrProcessNotFound)
	}

	step, err := r.enqueueLocked(processID, stepType)
	if err != nil {
		return nil, err
	}

	copied := *step

	return &copied, nil
}

func (r *processRepository) enqueueLocked(processID string, stepType models.StepType) (*models.ProcessStep, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	status := models.StepStatusTodo

	for _, existing := range r.steps[processID] {
		if existing.Type == stepType && existing.Status == models.StepStatusTodo {
			status = models.StepStatusDuplicate

			break
		}
	}

	step := &models.ProcessStep{
		ID:        id.String(),
		ProcessID: processID,
		Type:      stepType,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	r.steps[processID] = append(r.steps[processID], step)

	return step, nil
}

func (r *processRepository) FinalizeStep(ctx context.Context, stepID string, status models.StepStatus, message string, successors []models.StepType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, steps := range r.steps {
		for _, step := range steps {
			if step.ID != stepID {
				continue
			}

			if step.Status != models.StepStatusTodo {
				return false, nil
			}

			step.Status = status
			step.Message = message

			for _, successor := range successors {
				if _, err := r.enqueueLocked(step.ProcessID, successor); err != nil {
					return false, err
				}
			}

			return true, nil
		}
	}

	return false, &persistence.ProcessError{Op: "FinalizeStep", StepID: stepID, Err: persistence.ErrStepNotFound}
}

func (r *processRepository) RetriggerStep(ctx context.Context, processID string, stepType models.StepType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *models.ProcessStep

	// The newest row of the type decides retriggerability.
	for _, step := range r.steps[processID] {
		if step.Type == stepType {
			found = step
		}
	}

	if found == nil {
		return persistence.NewProcessError("RetriggerStep", processID, persistence.ErrStepNotFound)
	}

	if !found.Status.Retriggerable() {
		return persistence.NewProcessError("RetriggerStep", processID, persistence.ErrStepNotRetriggerable)
	}

	found.Status = models.StepStatusTodo
	found.Message = ""

	return nil
}

func (r *processRepository) PendingProcesses(ctx context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string

	for processID, steps := range r.steps {
		for _, step := range steps {
			if step.Status == models.StepStatusTodo && step.CreatedAt.Before(before) {
				ids = append(ids, processID)

				break
			}
		}
	}

	sort.Strings(ids)

	return ids, nil
}

func copySteps(steps []*models.ProcessStep) []*models.ProcessStep {
	copied := make([]*models.ProcessStep, 0, len(steps))

	for _, step := range steps {
		dup := *step
		copied = append(copied, &dup)
	}

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].CreatedAt.Before(copied[j].CreatedAt)
	})

	return copied
}
