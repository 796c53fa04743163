package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/api"
	"github.com/agentx/chatwidget/internal/api/middleware"
	"github.com/agentx/chatwidget/internal/config"
	"github.com/agentx/chatwidget/internal/logging"
	"github.com/agentx/chatwidget/internal/providers/local"
	"github.com/agentx/chatwidget/internal/render"
	"github.com/agentx/chatwidget/internal/repository"
	"github.com/agentx/chatwidget/internal/services"
	"github.com/agentx/chatwidget/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Log)

	// Open the session store and bring its schema up to date
	store, err := storage.Open(cfg.Database, repository.Defaults{
		UserID: cfg.DefaultUser,
		Model:  cfg.DefaultModel().ID,
	}, logging.Component(logger, "store"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to open session store")
	}
	defer store.Close()

	renderer := render.NewMarkdown()
	client := local.NewOpenAICompatibleClient(renderer, local.Options{
		ImagePrompt: cfg.Stream.ImagePrompt,
		Timeout:     cfg.Stream.Timeout,
	}, logging.Component(logger, "completion"))

	svc := services.NewServices(cfg, store, client, renderer, logger)
	defer svc.Close()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Chat Widget",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(middleware.RequestLogConfig{
		Logger:    logging.Component(logger, "http"),
		SkipPaths: []string{"/api/v1/health"},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	api.SetupRoutes(app, svc, api.RouteOptions{
		RateLimit: cfg.Server.RateLimit,
		Logger:    logging.Component(logger, "events"),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Failed to shut down server")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithFields(logrus.Fields{
		"addr":   addr,
		"driver": cfg.Database.Driver,
		"models": len(cfg.Models),
	}).Info("Chat widget server starting")
	if err := app.Listen(addr); err != nil {
		logger.WithError(err).Error("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
