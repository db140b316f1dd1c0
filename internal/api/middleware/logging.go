package middleware

import (
	"time"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every served request through logger. The logger drops
// the lines unless request logging is enabled in its config.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.LogHTTPRequest(
			c.Request.Method,
			path,
			utils.GetRealIP(c),
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start).String(),
		)
	}
}
