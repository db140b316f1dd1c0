package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupProtectedRoutes configures routes that require authentication
func SetupProtectedRoutes(v1 *gin.RouterGroup, h *Handlers, m *Middleware) {
	protected := v1.Group("")
	protected.Use(m.Auth.RequireAuth())

	SetupDomainRoutes(protected, h.Domain, m)
}
