package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/marketloom/user-api/docs" // Swagger docs
	"github.com/marketloom/user-api/internal/config"
	"github.com/marketloom/user-api/internal/logging"
	"github.com/marketloom/user-api/internal/metrics"
	"github.com/marketloom/user-api/internal/middleware"
	"github.com/marketloom/user-api/internal/routes"
	"github.com/marketloom/user-api/internal/store"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// @title User API
// @version 1.0
// @description User management backend with JWT session authentication

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name token
// @description Session token cookie set on register/login.

func main() {
	// Load configuration. An unresolved JWT secret is startup-fatal;
	// the service never signs with an empty or default key.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logging.New(cfg)

	// Resolve the signing secret once, before anything can issue tokens
	if err := config.ResolveJWTSecret(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Failed to resolve JWT signing secret")
	}

	// Initialize metrics
	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	// Initialize tracing
	tracingShutdown, err := middleware.InitTracing(&cfg.Observability, cfg.Server.Environment, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "User API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":     "INTERNAL_SERVER_ERROR",
					"message":  "Something went wrong on the server",
					"trace_id": c.Get("X-Request-ID"),
				},
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Cookie,X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(otelfiber.Middleware())

	// pprof for memory profiling (accessible at /debug/pprof/)
	app.Use(pprof.New())

	// Initialize middleware manager (token service + auth gate + Redis)
	middlewareManager, err := middleware.NewManager(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}
	defer middlewareManager.Close()

	// Initialize the credential store
	userStore, err := initializeStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize user store")
	}

	// Setup routes
	routes.Setup(app, cfg, logger, middlewareManager, userStore)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logger.WithField("port", cfg.Server.Port).Info("Starting User API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}

func initializeStore(cfg *config.Config, logger *logrus.Logger) (store.UserStore, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warn("Using in-memory user store; data will not survive a restart")
		return store.Instrument(store.NewMemoryStore()), nil
	}

	dynamoClient, err := initializeDynamoDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	return store.Instrument(store.NewDynamoStore(dynamoClient, cfg.DynamoDB.UsersTableName, logger)), nil
}

func initializeDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error

	if cfg.AWS.Profile != "" {
		// Use specific profile for local development
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWS.Profile),
		)
	} else {
		// IRSA in Kubernetes: the SDK picks up AWS_WEB_IDENTITY_TOKEN_FILE
		// and AWS_ROLE_ARN on its own
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	logger.WithFields(logrus.Fields{
		"region":     cfg.DynamoDB.Region,
		"table_name": cfg.DynamoDB.UsersTableName,
	}).Info("DynamoDB client initialized")

	return dynamoClient, nil
}
