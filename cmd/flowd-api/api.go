// Package main provides the Flowd API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/notify"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/registry"
	"github.com/flowd-io/flowd/pkg/services"
	"github.com/flowd-io/flowd/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	engineCfg   execution.Config
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	engineCfg execution.Config,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		engineCfg:   engineCfg,
	}
}

func (a *API) App() *fiber.App {
	templateService := services.NewTemplate(a.persistence, a.registry)
	executionService := services.NewExecution(a.persistence)
	notifier := notify.NewEventBusNotifier(a.eventBus, a.logger)
	controller := execution.NewController(a.persistence, a.registry, a.eventBus, notifier, a.logger, a.engineCfg)

	handlers := web.NewAPIHandlers(templateService, executionService, controller, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowd API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
