package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP returns the client address, preferring the headers set by the
// fronting nginx over the socket peer.
func GetRealIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	// X-Forwarded-For is "client, proxy1, proxy2"
	if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
		if client := strings.TrimSpace(strings.Split(forwardedFor, ",")[0]); client != "" {
			return client
		}
	}

	return c.ClientIP()
}
