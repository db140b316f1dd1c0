package routes

import (
	"github.com/gondar-software/domain-manager/internal/api/handlers"
	"github.com/gondar-software/domain-manager/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes configures authentication related routes
func SetupAuthRoutes(router *gin.RouterGroup, auth *handlers.AuthHandler, m *Middleware) {
	public := router.Group("/auth")
	{
		// Password guessing gets a tighter budget than the rest of the API
		loginRateLimit := middleware.RateLimitMiddleware(middleware.RateLimitConfig{RPS: 1, Burst: 5})
		public.POST("/login", loginRateLimit, m.Validation.ValidateLoginRequest(), auth.Login)
	}
}
