package utils

import (
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/logging"

	"github.com/gin-gonic/gin"
)

// LogError logs an error with a message using the global logger
func LogError(err error, message string) {
	logging.GetGlobalLogger().Error("%s: %v", message, err)
}

// HandleAPIError writes an error envelope and logs the failure. Error details
// are only exposed outside release mode.
func HandleAPIError(c *gin.Context, err error, status int, code common.ErrorCode, message string) {
	logging.GetGlobalLogger().LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		GetRealIP(c),
		status,
		message,
		err,
	)

	var details interface{}
	if gin.Mode() != gin.ReleaseMode && err != nil {
		details = err.Error()
	}

	c.AbortWithStatusJSON(status, common.NewErrorResponse(code, message, details))
}
