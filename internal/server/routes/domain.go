package routes

import (
	"github.com/gondar-software/domain-manager/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupDomainRoutes configures domain management routes
func SetupDomainRoutes(rg *gin.RouterGroup, domain *handlers.DomainHandler, m *Middleware) {
	domains := rg.Group("/domains")
	{
		domains.GET("", domain.ListDomains)
		domains.GET("/summary", domain.GetSummary)
		domains.GET("/:domain", domain.GetDomain)
		domains.POST("", m.Validation.ValidateCreateDomainRequest(), domain.CreateDomain)
		domains.PUT("/:domain", m.Validation.ValidateUpdateDomainRequest(), domain.UpdateDomain)
		domains.DELETE("/:domain", domain.DeleteDomain)
	}
}
