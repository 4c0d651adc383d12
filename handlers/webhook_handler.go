package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/logger"
)

// WebhookHandler receives inbound reply callbacks from the SMS
// gateway.
type WebhookHandler struct {
	delivery *service.DeliveryService
}

func NewWebhookHandler(delivery *service.DeliveryService) *WebhookHandler {
	return &WebhookHandler{delivery: delivery}
}

type ReplyWebhookPayload struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Text      string `json:"text"`
}

type ReplyWebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleReplies godoc
// @Summary SMS reply webhook
// @Description Receives reply callbacks from the gateway. Always acknowledges, even for unmatched message ids, so the gateway does not retry.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param payload body ReplyWebhookPayload true "Reply payload"
// @Success 200 {object} ReplyWebhookResponse
// @Router /webhook/replies [post]
func (h *WebhookHandler) HandleReplies(c echo.Context) error {
	var payload ReplyWebhookPayload
	if err := c.Bind(&payload); err != nil {
		logger.Warnf("Unparseable reply webhook payload: %v", err)
		return c.JSON(http.StatusOK, ReplyWebhookResponse{Success: true, Message: "Webhook received"})
	}

	if payload.MessageID == "" || payload.From == "" || payload.Text == "" {
		return c.JSON(http.StatusOK, ReplyWebhookResponse{Success: true, Message: "Webhook received"})
	}

	_, found, err := h.delivery.RecordReply(c.Request().Context(), payload.MessageID, payload.From, payload.Text)
	if err != nil {
		// The gateway must see success regardless; a storage hiccup is
		// ours to log, not the gateway's to retry forever.
		logger.Errorf("Failed to record reply for external id %s: %v", payload.MessageID, err)
		return c.JSON(http.StatusOK, ReplyWebhookResponse{Success: true, Message: "Webhook received"})
	}

	if !found {
		return c.JSON(http.StatusOK, ReplyWebhookResponse{Success: true, Message: "Webhook received"})
	}

	return c.JSON(http.StatusOK, ReplyWebhookResponse{Success: true, Message: "Reply processed successfully"})
}
