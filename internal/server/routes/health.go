package routes

import (
	"github.com/gondar-software/domain-manager/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupHealthRoutes configures health check and version endpoints
func SetupHealthRoutes(router *gin.Engine, v1 *gin.RouterGroup, health *handlers.HealthHandler) {
	router.GET("/health", health.Check)
	v1.GET("/version", health.Version)
}
