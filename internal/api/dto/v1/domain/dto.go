package domain

// HostRequest is one route of a domain
type HostRequest struct {
	Type string `json:"type" binding:"required,host_type"`
	Path string `json:"path" binding:"required,location_path"`
	Host string `json:"host" binding:"required,upstream_url"`
}

// CreateRequest represents the request for provisioning a domain
type CreateRequest struct {
	Domain string        `json:"domain" binding:"required,fqdn_or_label"`
	Hosts  []HostRequest `json:"hosts" binding:"required,min=1,unique=Path,dive"`
}

// UpdateRequest replaces every route of an existing domain
type UpdateRequest struct {
	Hosts []HostRequest `json:"hosts" binding:"required,min=1,unique=Path,dive"`
}

type HostResponse struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Host string `json:"host"`
}

// Response represents a hosted domain
type Response struct {
	Domain string         `json:"domain"`
	Hosts  []HostResponse `json:"hosts"`
}

// SummaryResponse is the aggregate of every hosted domain
type SummaryResponse struct {
	TotalDomains int                 `json:"total_domains"`
	Domains      map[string]Response `json:"domains"`
}

type StepResponse struct {
	Name     string `json:"name"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

type TransitionResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Note string `json:"note,omitempty"`
}

// OperationResponse reports how a provisioning operation went
type OperationResponse struct {
	ID       string               `json:"id"`
	Kind     string               `json:"kind"`
	Domain   string               `json:"domain"`
	State    string               `json:"state"`
	Steps    []StepResponse       `json:"steps"`
	History  []TransitionResponse `json:"history"`
	Error    string               `json:"error,omitempty"`
	Duration string               `json:"duration"`
	Result   *Response            `json:"result,omitempty"`
}
