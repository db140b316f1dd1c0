package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gondar-software/domain-manager/internal/api/constants"
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/auth"
	"github.com/gondar-software/domain-manager/internal/service"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator exchanges the operator password for a token
type Authenticator interface {
	Login(password string) (string, time.Time, error)
}

type AuthHandler struct {
	auth  Authenticator
	audit *service.AuditService
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{
		auth:  auth,
		audit: service.NewAuditService(),
	}
}

// Login returns a bearer token for the operator password
func (h *AuthHandler) Login(c *gin.Context) {
	req := c.MustGet(constants.ContextKeyLogin).(auth.LoginRequest)
	ip := utils.GetRealIP(c)

	token, expires, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.audit.LogAuthEvent(c.Request.Context(), service.AuditEventLoginFailed, ip, nil)
			c.Header("WWW-Authenticate", "Bearer")
			utils.HandleAPIError(c, err, http.StatusUnauthorized, common.ErrCodeUnauthorized, "Invalid credentials")
			return
		}
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Failed to issue token")
		return
	}

	h.audit.LogAuthEvent(c.Request.Context(), service.AuditEventLogin, ip, nil)
	utils.HandleSuccess(c, auth.LoginResponse{Token: token, ExpiresAt: expires})
}
