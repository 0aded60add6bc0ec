package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
	"github.com/sirupsen/logrus"
)

// Services - сервисы, которые обслуживает API v1
type Services struct {
	Auth          service.AuthService
	Incidents     service.IncidentService
	Users         service.UserService
	Organizations service.OrganizationService
	Contacts      service.ContactService
}

type Handler struct {
	authService         service.AuthService
	incidentService     service.IncidentService
	userService         service.UserService
	organizationService service.OrganizationService
	contactService      service.ContactService
	logger              *logrus.Logger
	validate            *validator.Validate
}

func NewHandler(services Services, logger *logrus.Logger) *Handler {
	return &Handler{
		authService:         services.Auth,
		incidentService:     services.Incidents,
		userService:         services.Users,
		organizationService: services.Organizations,
		contactService:      services.Contacts,
		logger:              logger,
		validate:            validator.New(),
	}
}

// bindJSON разбирает и проверяет тело запроса. При ошибке ответ уже записан.
func (h *Handler) bindJSON(c *gin.Context, log *logrus.Entry, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, log, err, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondBadRequest(c, log, err, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context, log *logrus.Entry, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, log, err, "invalid "+name+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// @Summary Report a new incident
// @Description Create a new incident in status pending.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")
	if !h.bindJSON(c, log, &input) {
		return
	}

	model := DTOToIncidentModel(input)
	if err := h.incidentService.CreateIncident(c.Request.Context(), actorFrom(c), model); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents. The organization view is limited to the categories of the caller's organization.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(pending, verified, resolved)
// @Param category query string false "Category filter" Enums(fire, medical, accident, security)
// @Param view query string false "List view" Enums(all, organization, mine) default(all)
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid filter"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, pageSize := pageParams(c)
	query := models.IncidentQuery{
		Status:   models.Status(c.Query("status")),
		Category: models.Category(c.Query("category")),
		View:     models.IncidentView(c.Query("view")),
		Page:     page,
		PageSize: pageSize,
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	log := h.logger.WithField("method", "getIncident")
	id, ok := parseID(c, log, "incident")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Verify an incident
// @Description Record a verification. Citizens add a community verification, staff verify directly.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Outside of the caller's categories"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 409 {object} ErrorResponse "Duplicate verification or incident already resolved"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id}/verify [post]
func (h *Handler) verifyIncident(c *gin.Context) {
	log := h.logger.WithField("method", "verifyIncident")
	id, ok := parseID(c, log, "incident")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	outcome, err := h.incidentService.VerifyIncident(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, OutcomeToVerifyResponse(outcome))
}

// @Summary Resolve an incident
// @Description Move a verified incident to resolved.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Outside of the caller's categories"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 409 {object} ErrorResponse "Incident is not verified"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id}/resolve [post]
func (h *Handler) resolveIncident(c *gin.Context) {
	log := h.logger.WithField("method", "resolveIncident")
	id, ok := parseID(c, log, "incident")
	if !ok {
		return
	}
	log = log.WithField("id", id)

	incident, err := h.incidentService.ResolveIncident(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary List incident verifications
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {array} VerificationResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id}/verifications [get]
func (h *Handler) listVerifications(c *gin.Context) {
	log := h.logger.WithField("method", "listVerifications")
	id, ok := parseID(c, log, "incident")
	if !ok {
		return
	}

	verifications, err := h.incidentService.ListVerifications(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelsToVerificationResponses(verifications))
}

// @Summary Get incident statistics
// @Description Count incidents per status.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.incidentService.GetStats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Pending:  stats.Pending,
		Verified: stats.Verified,
		Resolved: stats.Resolved,
		Total:    stats.Total,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
