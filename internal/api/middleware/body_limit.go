package middleware

import (
	"net/http"

	"github.com/gondar-software/domain-manager/internal/api/dto/common"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize bounds request bodies; domain payloads are tiny
const DefaultMaxBodySize = 1 << 20

// LimitRequestBody rejects bodies declared larger than maxBytes and caps the
// reader for the rest
func LimitRequestBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.NewErrorResponse(
				common.ErrCodeBadRequest, "Request body too large", nil))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
