package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gondar-software/domain-manager/internal/api/constants"
	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/api/mapper"
	"github.com/gondar-software/domain-manager/internal/api/sanitization"
	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/service"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// DomainService provisions and lists hosted domains
type DomainService interface {
	List(ctx context.Context) ([]models.Domain, error)
	Get(ctx context.Context, name string) (models.Domain, error)
	Summary(ctx context.Context) (models.DomainSummary, error)
	Add(ctx context.Context, name string, hosts []models.Host) (*service.Operation, error)
	Update(ctx context.Context, name string, hosts []models.Host) (*service.Operation, error)
	Remove(ctx context.Context, name string) (*service.Operation, error)
}

// DomainHandler handles domain-related HTTP requests
type DomainHandler struct {
	domains DomainService
	logger  *logging.Logger
}

func NewDomainHandler(domains DomainService) *DomainHandler {
	return &DomainHandler{
		domains: domains,
		logger:  logging.GetGlobalLogger(),
	}
}

// ListDomains lists every hosted domain
func (h *DomainHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.List(c.Request.Context())
	if err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Failed to list domains")
		return
	}
	utils.HandleSuccess(c, mapper.DomainsToResponses(domains))
}

// GetSummary returns the count and a name-keyed map of hosted domains
func (h *DomainHandler) GetSummary(c *gin.Context) {
	summary, err := h.domains.Summary(c.Request.Context())
	if err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Failed to summarize domains")
		return
	}
	utils.HandleSuccess(c, mapper.SummaryToResponse(summary))
}

// GetDomain returns one hosted domain
func (h *DomainHandler) GetDomain(c *gin.Context) {
	d, err := h.domains.Get(c.Request.Context(), sanitization.SanitizeDomainName(c.Param("domain")))
	if err != nil {
		h.handleError(c, nil, err, "Failed to get domain")
		return
	}
	utils.HandleSuccess(c, mapper.DomainToResponse(d))
}

// CreateDomain provisions DNS, a certificate and proxy routes
func (h *DomainHandler) CreateDomain(c *gin.Context) {
	req := c.MustGet(constants.ContextKeyCreateDomain).(domain.CreateRequest)

	op, err := h.domains.Add(c.Request.Context(), req.Domain, mapper.HostsFromRequest(req.Hosts))
	if err != nil {
		h.handleError(c, op, err, "Failed to add domain")
		return
	}
	utils.HandleCreated(c, mapper.OperationToResponse(op))
}

// UpdateDomain replaces the routes of a hosted domain
func (h *DomainHandler) UpdateDomain(c *gin.Context) {
	req := c.MustGet(constants.ContextKeyUpdateDomain).(domain.UpdateRequest)
	name := sanitization.SanitizeDomainName(c.Param("domain"))

	if _, err := h.domains.Get(c.Request.Context(), name); err != nil {
		h.handleError(c, nil, err, "Failed to update domain")
		return
	}

	op, err := h.domains.Update(c.Request.Context(), name, mapper.HostsFromRequest(req.Hosts))
	if err != nil {
		h.handleError(c, op, err, "Failed to update domain")
		return
	}
	utils.HandleSuccess(c, mapper.OperationToResponse(op))
}

// DeleteDomain tears down everything provisioned for a domain. Removing a
// domain that is not hosted succeeds.
func (h *DomainHandler) DeleteDomain(c *gin.Context) {
	op, err := h.domains.Remove(c.Request.Context(), sanitization.SanitizeDomainName(c.Param("domain")))
	if err != nil {
		h.handleError(c, op, err, "Failed to remove domain")
		return
	}
	utils.HandleSuccess(c, mapper.OperationToResponse(op))
}

// handleError maps service errors to statuses. Provisioning failures carry
// the operation report so the caller can see which step failed.
func (h *DomainHandler) handleError(c *gin.Context, op *service.Operation, err error, message string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.HandleAPIError(c, err, http.StatusUnprocessableEntity, common.ErrCodeValidation, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.HandleAPIError(c, err, http.StatusNotFound, common.ErrCodeNotFound, "Domain not found")
	case errors.Is(err, service.ErrShuttingDown):
		utils.HandleAPIError(c, err, http.StatusServiceUnavailable, common.ErrCodeUnavailable, "Server is shutting down")
	case op != nil && errors.Is(err, service.ErrManualIntervention):
		h.abortWithOperation(c, op, err, http.StatusInternalServerError, common.ErrCodeManualIntervention, message+": rollback failed, manual intervention required")
	case op != nil && errors.Is(err, service.ErrProvisionFailed):
		h.abortWithOperation(c, op, err, http.StatusBadGateway, common.ErrCodeProvisionFailed, message)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// the operation keeps running on the worker
		utils.HandleAPIError(c, err, http.StatusGatewayTimeout, common.ErrCodeUnavailable, message+": still in progress")
	default:
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, message)
	}
}

func (h *DomainHandler) abortWithOperation(c *gin.Context, op *service.Operation, err error, status int, code common.ErrorCode, message string) {
	h.logger.LogHTTPError(c.Request.Method, c.Request.URL.Path, utils.GetRealIP(c), status, message, err)
	c.AbortWithStatusJSON(status, common.NewErrorResponse(code, message, mapper.OperationToResponse(op)))
}
