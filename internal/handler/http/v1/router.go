package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Публичные маршруты
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.GET("/system/health", h.healthCheck)

	authed := api.Group("", BearerAuthMiddleware(h.authService, h.logger))

	users := authed.Group("/users")
	{
		users.GET("/me", h.getProfile)
		users.PUT("/me", h.updateProfile)
		users.GET("", h.listUsers)
		users.PUT("/:id/role", h.changeRole)
	}

	organizations := authed.Group("/organizations")
	{
		organizations.POST("", h.createOrganization)
		organizations.GET("", h.listOrganizations)
		organizations.GET("/:id", h.getOrganization)
		organizations.PATCH("/:id", h.updateOrganization)
	}

	// Удаления инцидентов нет ни на одном уровне
	incidents := authed.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/verify", h.verifyIncident)
		incidents.POST("/:id/resolve", h.resolveIncident)
		incidents.GET("/:id/verifications", h.listVerifications)
	}

	contacts := authed.Group("/contacts")
	{
		contacts.GET("", h.listContacts)
		contacts.POST("", h.createContact)
		contacts.PUT("/:id", h.updateContact)
		contacts.DELETE("/:id", h.deleteContact)
	}
}
