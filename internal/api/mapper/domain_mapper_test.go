package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/service"
)

func TestDomainToResponse(t *testing.T) {
	d := models.Domain{
		Name: "blog.example.com",
		Hosts: []models.Host{
			{Type: models.HostTypeDefault, Path: "/", Target: "http://localhost:9000"},
			{Type: models.HostTypeWebSocket, Path: "/ws", Target: "http://localhost:9001"},
		},
	}

	got := DomainToResponse(d)
	assert.Equal(t, "blog.example.com", got.Domain)
	assert.Equal(t, []domain.HostResponse{
		{Type: "default", Path: "/", Host: "http://localhost:9000"},
		{Type: "websocket", Path: "/ws", Host: "http://localhost:9001"},
	}, got.Hosts)

	assert.Equal(t, d.Hosts, HostsFromRequest([]domain.HostRequest{
		{Type: "default", Path: "/", Host: "http://localhost:9000"},
		{Type: "websocket", Path: "/ws", Host: "http://localhost:9001"},
	}))
}

func TestSummaryToResponse(t *testing.T) {
	s := models.DomainSummary{
		TotalDomains: 1,
		Domains: map[string]models.Domain{
			"a.example.com": {Name: "a.example.com", Hosts: []models.Host{{Type: models.HostTypeDefault, Path: "/", Target: "http://a"}}},
		},
	}
	got := SummaryToResponse(s)
	assert.Equal(t, 1, got.TotalDomains)
	assert.Equal(t, "http://a", got.Domains["a.example.com"].Hosts[0].Host)
}

func TestOperationToResponse(t *testing.T) {
	assert.Nil(t, OperationToResponse(nil))

	op := &service.Operation{
		ID:     "op-1",
		Kind:   service.OperationAdd,
		Domain: "blog.example.com",
		Hosts:  []models.Host{{Type: models.HostTypeDefault, Path: "/", Target: "http://localhost:9000"}},
		State:  service.StateCommitted,
		History: []service.Transition{
			{From: service.StateIdle, To: service.StateDNSDone, Note: "dns"},
		},
		Steps: []service.StepResult{{Name: "dns"}},
	}

	resp := OperationToResponse(op)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "blog.example.com", resp.Result.Domain)
	assert.Equal(t, "dns_done", resp.History[0].To)
	assert.Equal(t, "dns", resp.Steps[0].Name)

	op.Kind = service.OperationRemove
	assert.Nil(t, OperationToResponse(op).Result)

	op.Kind = service.OperationAdd
	op.State = service.StateRolledBack
	assert.Nil(t, OperationToResponse(op).Result)
}
