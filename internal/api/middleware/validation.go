package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gondar-software/domain-manager/internal/api/constants"
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/auth"
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/api/sanitization"
	"github.com/gondar-software/domain-manager/internal/api/validation"
	"github.com/gondar-software/domain-manager/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// ValidationMiddleware binds and validates request bodies, storing the
// result in the context for the handler
type ValidationMiddleware struct {
	logger *logging.Logger
}

// NewValidationMiddleware registers the custom tags on gin's validator
func NewValidationMiddleware() *ValidationMiddleware {
	logger := logging.GetGlobalLogger()
	if err := validation.RegisterGinValidators(); err != nil {
		logger.Error("Failed to register validators: %v", err)
	}
	return &ValidationMiddleware{logger: logger}
}

// bind decodes the body into obj, lets sanitize normalize it, then validates
func bind(c *gin.Context, obj interface{}, sanitize func()) error {
	if c.Request.Body == nil {
		return errors.New("empty request body")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		return err
	}
	if sanitize != nil {
		sanitize()
	}
	return binding.Validator.ValidateStruct(obj)
}

func (m *ValidationMiddleware) abort(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.NewErrorResponse(
			common.ErrCodeBadRequest, "Request body too large", nil))
		return
	}

	details := validation.FormatValidationError(err)
	if details == nil {
		m.logger.Debug("Malformed request body on %s: %v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, common.NewErrorResponse(
			common.ErrCodeBadRequest, "Invalid request body", err.Error()))
		return
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, common.NewErrorResponse(
		common.ErrCodeValidation, "Validation failed", details))
}

// ValidateLoginRequest validates login request
func (m *ValidationMiddleware) ValidateLoginRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := bind(c, &req, nil); err != nil {
			m.abort(c, err)
			return
		}

		c.Set(constants.ContextKeyLogin, req)
		c.Next()
	}
}

// ValidateCreateDomainRequest validates a provisioning request
func (m *ValidationMiddleware) ValidateCreateDomainRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.CreateRequest
		err := bind(c, &req, func() {
			req.Domain = sanitization.SanitizeDomainName(req.Domain)
			sanitization.SanitizeHosts(req.Hosts)
		})
		if err != nil {
			m.abort(c, err)
			return
		}

		c.Set(constants.ContextKeyCreateDomain, req)
		c.Next()
	}
}

// ValidateUpdateDomainRequest validates a route replacement request
func (m *ValidationMiddleware) ValidateUpdateDomainRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.UpdateRequest
		err := bind(c, &req, func() {
			sanitization.SanitizeHosts(req.Hosts)
		})
		if err != nil {
			m.abort(c, err)
			return
		}

		c.Set(constants.ContextKeyUpdateDomain, req)
		c.Next()
	}
}
