// Package main provides the Stepflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/venohr/stepflow/pkg/clients"
	"github.com/venohr/stepflow/pkg/eventbus"
	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/services"
	"github.com/venohr/stepflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	notifier    clients.Notifier
	mailer      clients.Mailer
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	notifier clients.Notifier,
	mailer clients.Mailer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		notifier:    notifier,
		mailer:      mailer,
	}
}

func (a *API) App() *fiber.App {
	subscriptionService := services.NewSubscription(a.persistence, a.eventBus, a.notifier, a.mailer, a.logger)
	identityProviderService := services.NewIdentityProvider(a.persistence, a.eventBus, a.logger)
	applicationService := services.NewApplication(a.persistence, a.eventBus, a.logger)
	processService := services.NewProcess(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(subscriptionService, identityProviderService, applicationService, processService)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Stepflow API")
	})

	s := app.Group("/subscriptions")
	s.Post("/", handlers.RequestSubscription)
	s.Post("/:id/activate", handlers.ActivateSubscription)

	app.Post("/identity-providers", handlers.CreateIdentityProviderSetup)

	applications := app.Group("/applications")
	applications.Post("/", handlers.SubmitApplication)
	applications.Post("/:id/decide", handlers.DecideApplication)

	p := app.Group("/processes")
	p.Get("/:entityId/steps", handlers.GetProcessSteps)
	p.Post("/:entityId/retrigger/:retriggerType", handlers.RetriggerStep)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
