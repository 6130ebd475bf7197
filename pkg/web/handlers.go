// Package web provides the HTTP handlers and REST endpoints for process step
// orchestration.
package web

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/venohr/stepflow/pkg/services"
)

type APIHandlers struct {
	subscriptionService     *services.Subscription
	identityProviderService *services.IdentityProvider
	applicationService      *services.Application
	processService          *services.Process
}

func NewAPIHandlers(
	subscriptionService *services.Subscription,
	identityProviderService *services.IdentityProvider,
	applicationService *services.Application,
	processService *services.Process,
) *APIHandlers {
	return &APIHandlers{
		subscriptionService:     subscriptionService,
		identityProviderService: identityProviderService,
		applicationService:      applicationService,
		processService:          processService,
	}
}

func (h *APIHandlers) RequestSubscription(c fiber.Ctx) error {
	var req services.RequestSubscriptionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	subscription, err := h.subscriptionService.RequestSubscription(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(subscription)
}

func (h *APIHandlers) ActivateSubscription(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Subscription ID is required")
	}

	var req services.ActivateSubscriptionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	subscription, err := h.subscriptionService.ActivateSubscription(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(subscription)
}

func (h *APIHandlers) CreateIdentityProviderSetup(c fiber.Ctx) error {
	var req services.CreateSetupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	provider, err := h.identityProviderService.CreateSetup(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(provider)
}

func (h *APIHandlers) SubmitApplication(c fiber.Ctx) error {
	var req services.SubmitApplicationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	application, err := h.applicationService.SubmitApplication(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(application)
}

// DecideApplicationRequest carries the onboarding decision for a submitted
// company application.
type DecideApplicationRequest struct {
	Approved bool `json:"approved"`
}

func (h *APIHandlers) DecideApplication(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Application ID is required")
	}

	var req DecideApplicationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	application, err := h.applicationService.DecideApplication(c.Context(), id, req.Approved)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(application)
}

func (h *APIHandlers) GetProcessSteps(c fiber.Ctx) error {
	entityID := c.Params("entityId")
	if entityID == "" {
		return badRequest(c, "Entity ID is required")
	}

	steps, err := h.processService.Steps(c.Context(), entityID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"steps": steps})
}

func (h *APIHandlers) RetriggerStep(c fiber.Ctx) error {
	entityID := c.Params("entityId")
	if entityID == "" {
		return badRequest(c, "Entity ID is required")
	}

	retriggerType := c.Params("retriggerType")
	if retriggerType == "" {
		return badRequest(c, "Retrigger type is required")
	}

	if err := h.processService.Retrigger(c.Context(), entityID, retriggerType); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Stepflow API is healthy"
	httpStatus := http.StatusOK

	if err := h.processService.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Stepflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
