package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/models"
)

// @Summary Get own profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/me [get]
func (h *Handler) getProfile(c *gin.Context) {
	log := h.logger.WithField("method", "getProfile")

	user, err := h.userService.GetProfile(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}

// @Summary Update own profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/me [put]
func (h *Handler) updateProfile(c *gin.Context) {
	var input UpdateProfileRequest
	log := h.logger.WithField("method", "updateProfile")
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actorFrom(c), models.ProfileUpdate{
		FullName: input.FullName,
		Phone:    input.Phone,
	})
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}

// @Summary List users
// @Description Moderators see the members of their own organization, super admins see everyone.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param organization_id query string false "Organization ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Number of items per page" default(20)
// @Success 200 {array} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid organization ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [get]
func (h *Handler) listUsers(c *gin.Context) {
	log := h.logger.WithField("method", "listUsers")
	page, pageSize := pageParams(c)
	filter := models.UserFilter{Page: page, PageSize: pageSize}

	if raw := c.Query("organization_id"); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, log, err, "invalid organization ID")
			return
		}
		filter.OrganizationID = &orgID
	}

	users, err := h.userService.ListUsers(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToUserResponses(users))
}

// @Summary Change user role
// @Description Assign a role and organization. Granting or revoking moderator and super_admin requires super_admin.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param role body ChangeRoleRequest true "Role change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/{id}/role [put]
func (h *Handler) changeRole(c *gin.Context) {
	log := h.logger.WithField("method", "changeRole")
	id, ok := parseID(c, log, "user")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	var input ChangeRoleRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), actorFrom(c), id, models.RoleChange{
		Role:           models.Role(input.Role),
		OrganizationID: input.OrganizationID,
	})
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}
