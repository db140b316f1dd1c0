package middleware

import (
	"net/http"
	"strings"

	"github.com/gondar-software/domain-manager/internal/api/constants"
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/service"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator checks bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*jwt.RegisteredClaims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	audit  *service.AuditService
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		audit:  service.NewAuditService(),
	}
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" token
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.HandleAPIError(c, service.ErrUnauthorized, http.StatusUnauthorized, common.ErrCodeUnauthorized, "Authentication required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.HandleAPIError(c, service.ErrUnauthorized, http.StatusUnauthorized, common.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			m.audit.LogAuthEvent(c.Request.Context(), service.AuditEventTokenInvalid, utils.GetRealIP(c), map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			utils.HandleAPIError(c, err, http.StatusUnauthorized, common.ErrCodeUnauthorized, "Could not validate credentials")
			return
		}

		c.Set(constants.ContextKeyClaims, claims)
		c.Next()
	}
}
