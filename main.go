package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"usermanagement/internal/config"
	"usermanagement/internal/database"
	"usermanagement/internal/handlers"
	"usermanagement/internal/middleware"
	"usermanagement/internal/repositories"
	"usermanagement/internal/security"
	"usermanagement/internal/services"
	"usermanagement/pkg/logger"
	"usermanagement/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	app, cleanup, err := NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer cleanup()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

// NewApp wires the database, broker, services and routes into a Fiber app.
// The returned cleanup func releases the database and broker connections.
func NewApp(cfg *config.Config, log zerolog.Logger) (*fiber.App, func(), error) {
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	var (
		events   services.EventPublisher
		mqClient *rabbitmq.Client
	)
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			database.Close(db)
			return nil, nil, err
		}
		events = mqClient
		if err := mqClient.ConsumeUserEvents(rabbitmq.AuditHandler(log)); err != nil {
			log.Warn().Err(err).Msg("failed to start user audit consumer")
		}
	} else {
		log.Info().Msg("RABBITMQ_URL not set, user events are disabled")
	}

	cleanup := func() {
		if mqClient != nil {
			if err := mqClient.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close rabbitmq client")
			}
		}
		database.Close(db)
	}

	// --- Services ---
	store := repositories.NewGORMStore(db)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	authService, err := services.NewAuthService(store.Users(), hasher, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	userService := services.NewUserService(store, hasher, authService.AdminUsername(), events, log)
	userHandler := handlers.NewUserHandler(userService)

	// --- Fiber ---
	app := fiber.New(fiber.Config{
		AppName:      "usermanagement",
		ErrorHandler: handlers.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if err := database.Ping(db); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiV1 := app.Group("/api/v1", middleware.BasicAuth(authService, log))
	userHandler.RegisterRoutes(apiV1)

	return app, cleanup, nil
}
