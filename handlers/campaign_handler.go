package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/internal/middlewares"
	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/response"
	"github.com/lightsms/lightsms/pkg/validator"
)

type CampaignHandler struct {
	service *service.CampaignService
}

func NewCampaignHandler(service *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type CreateCampaignRequest struct {
	Name          string     `json:"name" validate:"required,max=255"`
	Message       string     `json:"message" validate:"required_without=TemplateID,max=1000"`
	TemplateID    *int64     `json:"templateId,omitempty" validate:"omitempty,min=1"`
	GroupIDs      []int64    `json:"groupIds" validate:"required,min=1,dive,min=1"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Creates a campaign targeting one or more contact groups; scheduling it when scheduledTime is set
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param campaign body CreateCampaignRequest true "Campaign to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	campaign, err := h.service.CreateCampaign(
		c.Request().Context(),
		middlewares.UserID(c),
		req.Name,
		req.Message,
		req.TemplateID,
		req.GroupIDs,
		req.ScheduledTime,
	)
	if err != nil {
		if domain.IsValidation(err) {
			return response.BadRequest(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Campaign created successfully", campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaigns, totalCount, err := h.service.ListCampaigns(c.Request().Context(), middlewares.UserID(c), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, campaigns, page, pageSize, totalCount)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetCampaign(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "campaign not found")
		}
		return response.InternalServerError(c, err)
	}

	if campaign.UserID != middlewares.UserID(c) {
		return response.NotFound(c, "campaign not found")
	}

	return response.Ok(c, campaign)
}

// DispatchCampaign godoc
// @Summary Dispatch a campaign
// @Description Sends the campaign to every resolved recipient and returns the per-recipient results
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/dispatch [post]
func (h *CampaignHandler) DispatchCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetCampaign(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "campaign not found")
		}
		return response.InternalServerError(c, err)
	}
	if campaign.UserID != middlewares.UserID(c) {
		return response.NotFound(c, "campaign not found")
	}

	summary, err := h.service.DispatchCampaign(c.Request().Context(), id)
	if err != nil {
		if domain.IsInvalidState(err) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Campaign dispatched", summary)
}

// CancelCampaign godoc
// @Summary Cancel a campaign
// @Description Cancels a draft or scheduled campaign before any message is sent
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetCampaign(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "campaign not found")
		}
		return response.InternalServerError(c, err)
	}
	if campaign.UserID != middlewares.UserID(c) {
		return response.NotFound(c, "campaign not found")
	}

	if err := h.service.CancelCampaign(c.Request().Context(), id); err != nil {
		if domain.IsInvalidState(err) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Campaign cancelled", nil)
}

// ResumeCampaign godoc
// @Summary Resume a stuck campaign
// @Description Re-runs the dispatch pass for a campaign left in_progress; already-messaged contacts are skipped
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetCampaign(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "campaign not found")
		}
		return response.InternalServerError(c, err)
	}
	if campaign.UserID != middlewares.UserID(c) {
		return response.NotFound(c, "campaign not found")
	}

	summary, err := h.service.ResumeCampaign(c.Request().Context(), id)
	if err != nil {
		if domain.IsInvalidState(err) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Campaign resumed", summary)
}
