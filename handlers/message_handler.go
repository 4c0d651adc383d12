package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/lightsms/lightsms/internal/middlewares"
	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/response"
)

// MessageHandler exposes delivery-status lookups and quota checks.
type MessageHandler struct {
	delivery *service.DeliveryService
	quota    *service.QuotaService
}

func NewMessageHandler(delivery *service.DeliveryService, quota *service.QuotaService) *MessageHandler {
	return &MessageHandler{delivery: delivery, quota: quota}
}

// CheckMessageStatus godoc
// @Summary Check message delivery status
// @Description Queries the SMS gateway for the message's status and reconciles the local row
// @Tags messages
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param textId path string true "Gateway-assigned message id"
// @Success 200 {object} response.SuccessResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/messages/status/{textId} [get]
func (h *MessageHandler) CheckMessageStatus(c echo.Context) error {
	textID := c.Param("textId")
	if textID == "" {
		return response.BadRequestWithMessage(c, "textId is required")
	}

	status, err := h.delivery.CheckMessageStatus(c.Request().Context(), textID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, status)
}

// CheckQuota godoc
// @Summary Check monthly message quota
// @Description Returns the user's usage for the current calendar month against their plan limit
// @Tags quota
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/quota [get]
func (h *MessageHandler) CheckQuota(c echo.Context) error {
	view, err := h.quota.CheckQuota(c.Request().Context(), middlewares.UserID(c))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, view)
}

type PricingPlan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// GetPricingPlans godoc
// @Summary List pricing plans
// @Tags quota
// @Produce json
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/plans [get]
func (h *MessageHandler) GetPricingPlans(c echo.Context) error {
	plans := []PricingPlan{
		{
			ID:          "basic",
			Name:        "Basic",
			Price:       10.0,
			Description: "Perfect for small businesses and individuals",
			Features: []string{
				"1000 SMS messages per month",
				"Basic delivery tracking",
				"Email support",
			},
		},
		{
			ID:          "pro",
			Name:        "Professional",
			Price:       25.0,
			Description: "Ideal for growing businesses",
			Features: []string{
				"2000 SMS messages per month",
				"Advanced delivery tracking",
				"Message templates",
				"Priority email support",
			},
		},
		{
			ID:          "enterprise",
			Name:        "Enterprise",
			Price:       50.0,
			Description: "For large organizations with high volume needs",
			Features: []string{
				"4000 SMS messages per month",
				"Advanced delivery tracking",
				"Message templates",
				"Dedicated account manager",
				"API access",
			},
		},
	}

	return response.Ok(c, plans)
}
