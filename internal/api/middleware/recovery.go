package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gondar-software/domain-manager/internal/api/constants"
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/logging"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[PANIC] %s %s | %s | %s | %v\n%s",
					c.Request.Method,
					c.Request.URL.Path,
					c.ClientIP(),
					c.GetString(constants.ContextKeyRequestID),
					err,
					debug.Stack(),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, common.NewErrorResponse(
					common.ErrCodeInternalServer, "Internal server error", fmt.Sprintf("request %s", c.GetString(constants.ContextKeyRequestID))))
			}
		}()

		c.Next()
	}
}
