package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
	"github.com/sirupsen/logrus"
)

const actorKey = "actor"

// BearerAuthMiddleware - middleware для аутентификации по токену доступа.
// Актор с текущей ролью кладется в контекст gin.
func BearerAuthMiddleware(auth service.AuthService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := log.WithFields(logrus.Fields{"middleware": "auth", "path": c.FullPath()})

		header := c.GetHeader("Authorization")
		accessToken, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(accessToken) == "" {
			entry.Warn("Bearer token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "bearer token required",
				Kind:  apperr.KindUnauthenticated.String(),
			})
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(accessToken))
		if err != nil {
			respondError(c, entry, err)
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom возвращает актора запроса; nil для неаутентифицированных маршрутов
func actorFrom(c *gin.Context) *models.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*models.Actor)
	return actor
}

// @Summary Register a citizen account
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body RegisterRequest true "Registration request"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid request body, validation error or email taken"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input RegisterRequest
	log := h.logger.WithField("method", "register")
	if !h.bindJSON(c, log, &input) {
		return
	}

	session, err := h.authService.Register(c.Request.Context(), models.Registration{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Phone:    input.Phone,
	})
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToSessionResponse(session))
}

// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login request"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 401 {object} ErrorResponse "Invalid email or password"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	log := h.logger.WithField("method", "login")
	if !h.bindJSON(c, log, &input) {
		return
	}

	session, err := h.authService.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToSessionResponse(session))
}
