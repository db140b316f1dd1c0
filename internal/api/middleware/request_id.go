package middleware

import (
	"github.com/gondar-software/domain-manager/internal/api/constants"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxRequestIDLength = 128

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reuse a sane request ID from the proxy
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.New().String()
		}

		c.Set(constants.ContextKeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
