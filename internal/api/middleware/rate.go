package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for the rate limiter
type RateLimitConfig struct {
	// Requests per second per client
	RPS int
	// Burst size (number of requests that can be made in a single burst)
	Burst int
	// Limiters idle this long are dropped
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits each client IP with its own token bucket
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.RPS <= 0 {
		config.RPS = 10
	}
	if config.Burst <= 0 {
		config.Burst = config.RPS * 2
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastSweep = time.Now()
	)

	limiterFor := func(ip string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(lastSweep) > config.IdleTTL {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > config.IdleTTL {
					delete(clients, key)
				}
			}
			lastSweep = now
		}

		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(config.RPS), config.Burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		return cl.limiter
	}

	return func(c *gin.Context) {
		now := time.Now()
		limiter := limiterFor(utils.GetRealIP(c), now)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RPS))

		if !limiter.AllowN(now, 1) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.NewErrorResponse(
				common.ErrCodeTooManyRequests, "Rate limit exceeded. Please try again later.", nil))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(now))))
		c.Next()
	}
}
