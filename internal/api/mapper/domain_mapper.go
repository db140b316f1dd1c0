package mapper

import (
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/service"
)

// DomainToResponse converts a hosted Domain to its DTO
func DomainToResponse(d models.Domain) domain.Response {
	hosts := make([]domain.HostResponse, len(d.Hosts))
	for i, h := range d.Hosts {
		hosts[i] = domain.HostResponse{
			Type: string(h.Type),
			Path: h.Path,
			Host: h.Target,
		}
	}
	return domain.Response{Domain: d.Name, Hosts: hosts}
}

// DomainsToResponses converts a slice of Domains preserving order
func DomainsToResponses(domains []models.Domain) []domain.Response {
	result := make([]domain.Response, len(domains))
	for i, d := range domains {
		result[i] = DomainToResponse(d)
	}
	return result
}

func SummaryToResponse(s models.DomainSummary) domain.SummaryResponse {
	out := domain.SummaryResponse{
		TotalDomains: s.TotalDomains,
		Domains:      make(map[string]domain.Response, len(s.Domains)),
	}
	for name, d := range s.Domains {
		out.Domains[name] = DomainToResponse(d)
	}
	return out
}

// HostsFromRequest converts validated host DTOs to model hosts
func HostsFromRequest(hosts []domain.HostRequest) []models.Host {
	out := make([]models.Host, len(hosts))
	for i, h := range hosts {
		out[i] = models.Host{
			Type:   models.HostType(h.Type),
			Path:   h.Path,
			Target: h.Host,
		}
	}
	return out
}

// OperationToResponse converts an operation report. Result is set for
// committed adds and updates.
func OperationToResponse(op *service.Operation) *domain.OperationResponse {
	if op == nil {
		return nil
	}

	resp := &domain.OperationResponse{
		ID:       op.ID,
		Kind:     string(op.Kind),
		Domain:   op.Domain,
		State:    string(op.State),
		Steps:    make([]domain.StepResponse, len(op.Steps)),
		History:  make([]domain.TransitionResponse, len(op.History)),
		Error:    op.Error,
		Duration: op.Duration().String(),
	}
	for i, s := range op.Steps {
		resp.Steps[i] = domain.StepResponse{Name: s.Name, Error: s.Error, Duration: s.Duration.String()}
	}
	for i, t := range op.History {
		resp.History[i] = domain.TransitionResponse{From: string(t.From), To: string(t.To), Note: t.Note}
	}

	if op.State == service.StateCommitted && op.Kind != service.OperationRemove {
		result := DomainToResponse(models.Domain{Name: op.Domain, Hosts: op.Hosts})
		resp.Result = &result
	}
	return resp
}
