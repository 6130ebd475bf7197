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

// Application implements the network registration operations for company
// applications submitted by onboarding service providers.
type Application struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewApplication(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Application {
	return &Application{
		persistence: p,
		publisher:   publisher,
		validate:    validator.New(),
		logger:      logger.With("module", "application_service"),
	}
}

// SubmitApplicationRequest contains the input for a company application
// entering the network registration workflow.
type SubmitApplicationRequest struct {
	CompanyID      string `json:"company_id"       validate:"required"`
	CompanyName    string `json:"company_name"     validate:"required"`
	ExternalUserID string `json:"external_user_id"`
	OspCallbackURL string `json:"osp_callback_url" validate:"omitempty,url"`
}

// SubmitApplication records the application as SUBMITTED, opens the network
// registration process and seeds the user synchronization step.
func (s *Application) SubmitApplication(ctx context.Context, req SubmitApplicationRequest) (*models.CompanyApplication, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ControllerArgumentError{Parameter: "body", Message: err.Error()}
	}

	process := &models.Process{Type: models.ProcessTypeNetworkRegistration}
	if err := s.persistence.Processes().CreateProcess(ctx, process); err != nil {
		return nil, fmt.Errorf("failed to create process: %w", err)
	}

	application := &models.CompanyApplication{
		CompanyID:      req.CompanyID,
		CompanyName:    req.CompanyName,
		Status:         models.ApplicationStatusSubmitted,
		ExternalUserID: req.ExternalUserID,
		OspCallbackURL: req.OspCallbackURL,
		ProcessID:      &process.ID,
	}

	if err := s.persistence.Applications().Save(ctx, application); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	step, err := s.persistence.Processes().EnqueueStep(ctx, process.ID, models.StepSynchronizeUser)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue first step: %w", err)
	}

	s.logger.InfoContext(ctx, "Application submitted",
		"application_id", application.ID,
		"process_id", process.ID,
		"company_id", application.CompanyID,
	)

	publishProcessStarted(ctx, s.publisher, s.logger, process)
	publishStepEnqueued(ctx, s.publisher, s.logger, step)

	return application, nil
}

// DecideApplication records an APPROVED or DECLINED decision and re-runs the
// synchronization chain so the matching OSP callback goes out.
func (s *Application) DecideApplication(ctx context.Context, applicationID string, approved bool) (*models.CompanyApplication, error) {
	application, err := s.persistence.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if application.Status != models.ApplicationStatusSubmitted {
		return nil, &ConflictError{
			Parameter: "Status",
			Message:   fmt.Sprintf("application is %s, only SUBMITTED applications can be decided", application.Status),
		}
	}

	if approved {
		application.Status = models.ApplicationStatusApproved
	} else {
		application.Status = models.ApplicationStatusDeclined
	}

	if err := s.persistence.Applications().Save(ctx, application); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	if application.ProcessID != nil {
		step, err := s.persistence.Processes().EnqueueStep(ctx, *application.ProcessID, models.StepSynchronizeUser)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue synchronization step: %w", err)
		}

		publishStepEnqueued(ctx, s.publisher, s.logger, step)
	}

	s.logger.InfoContext(ctx, "Application decided",
		"application_id", application.ID,
		"status", application.Status,
	)

	return application, nil
}
