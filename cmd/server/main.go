// Package main is the entry point for the grants API server.
// It loads configuration, runs migrations, connects to PostgreSQL and serves
// the JSON API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mattlim-fl/ai-grant-applications/internal/config"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/handlers"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/telemetry"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit")
	rollback := flag.Bool("rollback", false, "roll back the last migration and exit")
	flag.Parse()

	logger := security.NewLogger().WithService(telemetry.ServiceName)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *rollback {
		if err := database.RollbackMigration(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		return
	}
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if *migrateOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Critical("Server stopped with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *security.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("Failed to flush traces", err)
		}
	}()

	if err := database.Connect(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}); err != nil {
		return err
	}
	defer database.Close()

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.TokenIssuer = cfg.JWTIssuer
	securityConfig.EnforceHTTPS = cfg.IsProduction()

	securityMiddleware := middleware.NewSecurityMiddleware(logger, securityConfig)

	app := fiber.New(fiber.Config{
		AppName:               "grants-api",
		BodyLimit:             securityConfig.MaxBodySize,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Panic recovery (should be first)
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Tracing())
	app.Use(securityMiddleware.RequestLogger())
	app.Use(securityMiddleware.SecureHeaders())
	if cfg.AllowedOrigins == "*" {
		logger.Warn("CORS allows any origin; credentials are disabled")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowHeaders:     "Authorization, Content-Type, " + middleware.HeaderRequestID,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    middleware.HeaderRequestID + ", " + middleware.HeaderRateLimitRemaining,
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if !database.IsConnected(c.UserContext()) {
			return middleware.Abort(c, envelope.New(envelope.CodeDatabase, "database unavailable"))
		}
		return c.JSON(envelope.OK(fiber.Map{"status": "ok"}))
	})

	stopLimiters := handlers.RegisterRoutes(app.Group("/api"), handlers.Options{
		JWTSecret: []byte(cfg.JWTSecret),
		Logger:    logger,
		Config:    securityConfig,
	})
	defer stopLimiters()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening on :" + cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// errorHandler answers errors that escaped a handler (unknown routes, body
// too large, recovered panics) with the envelope instead of plain text.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := envelope.CodeDatabase
		switch fe.Code {
		case fiber.StatusNotFound:
			code = envelope.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = envelope.CodeValidation
		case fiber.StatusUnauthorized:
			code = envelope.CodeUnauthorized
		}
		return c.Status(fe.Code).JSON(envelope.Fail(envelope.New(code, fe.Message)))
	}
	return middleware.Abort(c, envelope.New(envelope.CodeDatabase, "Internal server error"))
}
