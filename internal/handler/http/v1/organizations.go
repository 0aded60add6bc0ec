package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rindwa/rindwa_api/internal/models"
)

// @Summary Create an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param organization body CreateOrganizationRequest true "Organization"
// @Success 201 {object} OrganizationResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /organizations [post]
func (h *Handler) createOrganization(c *gin.Context) {
	var input CreateOrganizationRequest
	log := h.logger.WithField("method", "createOrganization")
	if !h.bindJSON(c, log, &input) {
		return
	}

	org := &models.Organization{Name: input.Name, Types: orgTypes(input.Types)}
	if err := h.organizationService.CreateOrganization(c.Request.Context(), actorFrom(c), org); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToOrganizationResponse(org))
}

// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Number of items per page" default(20)
// @Success 200 {array} OrganizationResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /organizations [get]
func (h *Handler) listOrganizations(c *gin.Context) {
	log := h.logger.WithField("method", "listOrganizations")
	page, pageSize := pageParams(c)

	orgs, err := h.organizationService.ListOrganizations(c.Request.Context(), actorFrom(c), page, pageSize)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToOrganizationResponses(orgs))
}

// @Summary Get organization by ID
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} OrganizationResponse
// @Failure 400 {object} ErrorResponse "Invalid organization ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Organization not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /organizations/{id} [get]
func (h *Handler) getOrganization(c *gin.Context) {
	log := h.logger.WithField("method", "getOrganization")
	id, ok := parseID(c, log, "organization")
	if !ok {
		return
	}

	org, err := h.organizationService.GetOrganization(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToOrganizationResponse(org))
}

// @Summary Update an organization
// @Description Partial update. Deactivating an organization removes the category scope of its members.
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param organization body UpdateOrganizationRequest true "Fields to change"
// @Success 200 {object} OrganizationResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Organization not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /organizations/{id} [patch]
func (h *Handler) updateOrganization(c *gin.Context) {
	log := h.logger.WithField("method", "updateOrganization")
	id, ok := parseID(c, log, "organization")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	var input UpdateOrganizationRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	org, err := h.organizationService.UpdateOrganization(c.Request.Context(), actorFrom(c), id, models.OrganizationUpdate{
		Name:   input.Name,
		Types:  orgTypes(input.Types),
		Active: input.Active,
	})
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToOrganizationResponse(org))
}
