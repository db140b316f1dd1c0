package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gondar-software/domain-manager/internal/logging"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	AuditEventLogin        AuditEventType = "LOGIN"
	AuditEventLoginFailed  AuditEventType = "LOGIN_FAILED"
	AuditEventTokenInvalid AuditEventType = "TOKEN_INVALID"

	AuditEventDomainAdded   AuditEventType = "DOMAIN_ADDED"
	AuditEventDomainRemoved AuditEventType = "DOMAIN_REMOVED"
	AuditEventDomainUpdated AuditEventType = "DOMAIN_UPDATED"
	AuditEventRollback      AuditEventType = "ROLLBACK"
	AuditEventFailed        AuditEventType = "OPERATION_FAILED"
	AuditEventManualAction  AuditEventType = "MANUAL_INTERVENTION"
)

// AuditService writes audit events to the log
type AuditService struct {
	logger *logging.Logger
}

func NewAuditService() *AuditService {
	return &AuditService{logger: logging.GetGlobalLogger()}
}

// LogAuthEvent logs an authentication-related event
func (s *AuditService) LogAuthEvent(_ context.Context, eventType AuditEventType, ip string, details map[string]interface{}) {
	if eventType == AuditEventLogin {
		s.logger.Info("[AUDIT] %s | IP: %s%s", eventType, ip, formatDetails(details))
		return
	}
	s.logger.Warn("[AUDIT] %s | IP: %s%s", eventType, ip, formatDetails(details))
}

// LogOperation logs the outcome of a provisioning operation
func (s *AuditService) LogOperation(_ context.Context, op *Operation) {
	eventType := AuditEventDomainAdded
	switch op.Kind {
	case OperationRemove:
		eventType = AuditEventDomainRemoved
	case OperationUpdate:
		eventType = AuditEventDomainUpdated
	}

	details := map[string]interface{}{
		"operation": op.ID,
		"state":     op.State,
		"duration":  op.Duration().String(),
	}

	switch op.State {
	case StateCommitted:
		s.logger.Info("[AUDIT] %s | Domain: %s%s", eventType, op.Domain, formatDetails(details))
	case StateRolledBack:
		details["error"] = op.Err
		s.logger.Warn("[AUDIT] %s | Domain: %s%s", AuditEventRollback, op.Domain, formatDetails(details))
	default:
		details["error"] = op.Err
		if errors.Is(op.Err, ErrManualIntervention) {
			eventType = AuditEventManualAction
		} else {
			eventType = AuditEventFailed
		}
		s.logger.Error("[AUDIT] %s | Domain: %s%s", eventType, op.Domain, formatDetails(details))
	}
}

func formatDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " | %s: %v", k, details[k])
	}
	return b.String()
}
