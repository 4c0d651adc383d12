package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/internal/middlewares"
	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/response"
	"github.com/lightsms/lightsms/pkg/validator"
)

type ContactHandler struct {
	service *service.ContactService
}

func NewContactHandler(service *service.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type CreateContactRequest struct {
	PhoneNumber string  `json:"phoneNumber" validate:"required,e164"`
	GroupID     *int64  `json:"groupId,omitempty" validate:"omitempty,min=1"`
	FirstName   *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName    *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
}

type CreateTemplateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=1000"`
}

// CreateGroup godoc
// @Summary Create a contact group
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param group body CreateGroupRequest true "Group to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/groups [post]
func (h *ContactHandler) CreateGroup(c echo.Context) error {
	var req CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	group, err := h.service.CreateGroup(c.Request().Context(), middlewares.UserID(c), req.Name, req.Description)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Group created successfully", group)
}

// ListGroups godoc
// @Summary List contact groups
// @Tags contacts
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/groups [get]
func (h *ContactHandler) ListGroups(c echo.Context) error {
	groups, err := h.service.ListGroups(c.Request().Context(), middlewares.UserID(c))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, groups)
}

// DeleteGroup godoc
// @Summary Delete a contact group
// @Description Removes the group; its contacts are kept and detached
// @Tags contacts
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Group ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/groups/{id} [delete]
func (h *ContactHandler) DeleteGroup(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.DeleteGroup(c.Request().Context(), middlewares.UserID(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "group not found")
		}
		return response.InternalServerError(c, err)
	}

	return response.NoContent(c)
}

// CreateContact godoc
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param contact body CreateContactRequest true "Contact to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/contacts [post]
func (h *ContactHandler) CreateContact(c echo.Context) error {
	var req CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	contact, err := h.service.CreateContact(
		c.Request().Context(),
		middlewares.UserID(c),
		req.GroupID,
		req.PhoneNumber,
		req.FirstName,
		req.LastName,
		req.Email,
	)
	if err != nil {
		if domain.IsValidation(err) || errors.Is(err, domain.ErrNotFound) {
			return response.BadRequest(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Contact created successfully", contact)
}

// ListContacts godoc
// @Summary List contacts
// @Tags contacts
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	contacts, totalCount, err := h.service.ListContacts(c.Request().Context(), middlewares.UserID(c), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, contacts, page, pageSize, totalCount)
}

// OptOutContact godoc
// @Summary Opt a contact out
// @Description Permanently withdraws the contact from all future sends
// @Tags contacts
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param id path int true "Contact ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/contacts/{id}/opt-out [post]
func (h *ContactHandler) OptOutContact(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.OptOutContact(c.Request().Context(), middlewares.UserID(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "contact not found")
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Contact opted out", nil)
}

// CreateTemplate godoc
// @Summary Create a message template
// @Tags templates
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Param template body CreateTemplateRequest true "Template to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/templates [post]
func (h *ContactHandler) CreateTemplate(c echo.Context) error {
	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	tpl, err := h.service.CreateTemplate(c.Request().Context(), middlewares.UserID(c), req.Name, req.Content)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Template created successfully", tpl)
}

// ListTemplates godoc
// @Summary List message templates
// @Tags templates
// @Produce json
// @Param x-api-key header string true "API key"
// @Param x-user-id header int true "Authenticated user id"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/templates [get]
func (h *ContactHandler) ListTemplates(c echo.Context) error {
	templates, err := h.service.ListTemplates(c.Request().Context(), middlewares.UserID(c))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, templates)
}
