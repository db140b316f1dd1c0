package routes

import (
	"net/http"

	"github.com/gondar-software/domain-manager/internal/api/middleware"
	"github.com/gondar-software/domain-manager/internal/logging"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GlobalConfig tunes the middleware applied to every route
type GlobalConfig struct {
	ServiceName    string
	RateLimit      middleware.RateLimitConfig
	CORS           middleware.CORSConfig
	MaxRequestBody int64
}

// Setup configures all route groups
func Setup(router *gin.Engine, h *Handlers, m *Middleware) {
	logger := logging.GetGlobalLogger()

	// Create base API v1 group
	v1 := router.Group("/api/v1")

	// Public routes (no auth required)
	SetupHealthRoutes(router, v1, h.Health)
	SetupAuthRoutes(v1, h.Auth, m)

	// Protected API routes (auth required)
	SetupProtectedRoutes(v1, h, m)

	logger.Info("All routes have been set up successfully")
}

// SetupGlobalMiddleware configures middleware that applies to all routes
func SetupGlobalMiddleware(router *gin.Engine, logger *logging.Logger, cfg GlobalConfig) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health"
	})))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.LimitRequestBody(cfg.MaxRequestBody))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
}
