package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/utils"
	"github.com/gondar-software/domain-manager/internal/version"

	"github.com/gin-gonic/gin"
)

// ConfigReader reads the live proxy configuration
type ConfigReader interface {
	Text(ctx context.Context) (string, error)
}

type HealthHandler struct {
	config ConfigReader
}

func NewHealthHandler(config ConfigReader) *HealthHandler {
	return &HealthHandler{config: config}
}

// Check reports healthy when the proxy configuration is readable
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.config.Text(ctx); err != nil {
		utils.HandleAPIError(c, err, http.StatusServiceUnavailable, common.ErrCodeUnavailable, "Proxy configuration unreadable")
		return
	}

	c.JSON(http.StatusOK, common.NewMessageResponse("Health check OK"))
}

// Version reports this build, and whether the calling client is outdated
// when it sends X-Client-Version
func (h *HealthHandler) Version(c *gin.Context) {
	clientVersion := c.GetHeader("X-Client-Version")
	if clientVersion == "" {
		clientVersion = c.Query("client_version")
	}
	utils.HandleSuccess(c, version.GetServerVersionInfo(clientVersion))
}
