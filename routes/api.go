package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/handlers"
	"github.com/lightsms/lightsms/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	campaignHandler *handlers.CampaignHandler,
	contactHandler *handlers.ContactHandler,
	messageHandler *handlers.MessageHandler,
	webhookHandler *handlers.WebhookHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Gateway callbacks are unauthenticated by contract: the gateway
	// must never see an error, so no key check happens here.
	e.POST("/webhook/replies", webhookHandler.HandleReplies)

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Pricing catalogue is public.
	v1.GET("/plans", messageHandler.GetPricingPlans)

	// User-facing routes: API key plus the identity resolved by the
	// auth boundary.
	api := v1.Group("", middlewares.APIKeyAuth(cfg.Auth.APIKey), middlewares.RequireUser())

	api.POST("/campaigns", campaignHandler.CreateCampaign)
	api.GET("/campaigns", campaignHandler.ListCampaigns)
	api.GET("/campaigns/:id", campaignHandler.GetCampaign)
	api.POST("/campaigns/:id/dispatch", campaignHandler.DispatchCampaign)
	api.POST("/campaigns/:id/resume", campaignHandler.ResumeCampaign)
	api.POST("/campaigns/:id/cancel", campaignHandler.CancelCampaign)

	api.POST("/groups", contactHandler.CreateGroup)
	api.GET("/groups", contactHandler.ListGroups)
	api.DELETE("/groups/:id", contactHandler.DeleteGroup)

	api.POST("/contacts", contactHandler.CreateContact)
	api.GET("/contacts", contactHandler.ListContacts)
	api.POST("/contacts/:id/opt-out", contactHandler.OptOutContact)

	api.POST("/templates", contactHandler.CreateTemplate)
	api.GET("/templates", contactHandler.ListTemplates)

	api.GET("/messages/status/:textId", messageHandler.CheckMessageStatus)
	api.GET("/quota", messageHandler.CheckQuota)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey))

	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
}
