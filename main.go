package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/handlers"
	"github.com/lightsms/lightsms/internal/repository"
	"github.com/lightsms/lightsms/internal/scheduler"
	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/database"
	"github.com/lightsms/lightsms/pkg/gateway"
	"github.com/lightsms/lightsms/pkg/logger"
	"github.com/lightsms/lightsms/pkg/redis"
	"github.com/lightsms/lightsms/pkg/validator"
	"github.com/lightsms/lightsms/routes"

	_ "github.com/lightsms/lightsms/docs" // swagger docs
)

// @title LightSMS API
// @version 1.0
// @description Bulk SMS campaign backend relaying messages through TextBelt

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Gateway.APIKey == "" {
		logger.Fatalf("TEXTBELT_API_KEY is required but not set")
	}
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}

	logger.Infof("Starting LightSMS backend...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis, cfg.Quota.CacheTTL)
	if err != nil {
		logger.Warnf("Redis not available, quota caching disabled: %v", err)
		redisClient = nil
	}

	// SMS gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway)
	logger.Infof("Gateway configured: %s", gatewayClient.SendURL())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	responseRepo := repository.NewResponseRepository(db)

	// Services. The valkey client satisfies the cache interfaces but a
	// nil *redis.Client must stay a nil interface value.
	var quotaCacheForCampaigns service.QuotaInvalidator
	var quotaCacheForQuota service.QuotaCache
	if redisClient != nil {
		quotaCacheForCampaigns = redisClient
		quotaCacheForQuota = redisClient
	}

	campaignService := service.NewCampaignService(
		campaignRepo,
		contactRepo,
		messageRepo,
		templateRepo,
		gatewayClient,
		responseRepo,
		quotaCacheForCampaigns,
		cfg.Message,
	)
	deliveryService := service.NewDeliveryService(messageRepo, responseRepo, gatewayClient)
	quotaService := service.NewQuotaService(messageRepo, userRepo, quotaCacheForQuota, cfg.Quota)
	contactService := service.NewContactService(contactRepo, templateRepo)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(campaignService, cfg.Scheduler.PollInterval, cfg.Scheduler.BatchSize)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	contactHandler := handlers.NewContactHandler(contactService)
	messageHandler := handlers.NewMessageHandler(deliveryService, quotaService)
	webhookHandler := handlers.NewWebhookHandler(deliveryService)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
			"x-user-id",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, campaignHandler, contactHandler, messageHandler, webhookHandler, schedulerHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout)
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
