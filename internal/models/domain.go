package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HostType selects how a location proxies traffic.
type HostType string

const (
	HostTypeDefault   HostType = "default"
	HostTypeWebSocket HostType = "websocket"
)

// Valid reports whether t is one of the known host types.
func (t HostType) Valid() bool {
	return t == HostTypeDefault || t == HostTypeWebSocket
}

// Host is one proxied route: a URL path prefix forwarded to an upstream.
type Host struct {
	Type   HostType `json:"type"`
	Path   string   `json:"path"`
	Target string   `json:"host"`
}

// Domain is a hosted name and its ordered routes. Name is the identity key
// shared by DNS, certificates and the proxy configuration.
type Domain struct {
	Name  string `json:"domain"`
	Hosts []Host `json:"hosts"`
}

var (
	ErrEmptyName     = errors.New("domain name is empty")
	ErrNoHosts       = errors.New("at least one host is required")
	ErrInvalidHost   = errors.New("invalid host")
	ErrDuplicatePath = errors.New("duplicate location path")
)

// NormalizeName lower-cases name and strips surrounding space and a trailing dot.
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// Validate checks the route list. Names are validated where they are qualified.
func (d Domain) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	return ValidateHosts(d.Hosts)
}

// ValidateHosts checks every host and rejects repeated paths, which the proxy
// would refuse as duplicate locations.
func ValidateHosts(hosts []Host) error {
	if len(hosts) == 0 {
		return ErrNoHosts
	}
	seen := make(map[string]struct{}, len(hosts))
	for i, h := range hosts {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("hosts[%d]: %w", i, err)
		}
		if _, dup := seen[h.Path]; dup {
			return fmt.Errorf("hosts[%d]: %w: %s", i, ErrDuplicatePath, h.Path)
		}
		seen[h.Path] = struct{}{}
	}
	return nil
}

func (h Host) Validate() error {
	if !h.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidHost, h.Type)
	}
	if err := ValidatePath(h.Path); err != nil {
		return err
	}
	return ValidateTarget(h.Target)
}

// ValidatePath accepts a location argument that renders as a single token.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidHost)
	}
	if strings.ContainsAny(path, " \t\r\n;{}#\"'") {
		return fmt.Errorf("%w: path %q contains reserved characters", ErrInvalidHost, path)
	}
	return nil
}

// ValidateTarget accepts scheme://host[:port][/path] with an http or https scheme.
func ValidateTarget(target string) error {
	if strings.ContainsAny(target, " \t\r\n;{}#\"'") {
		return fmt.Errorf("%w: target %q contains reserved characters", ErrInvalidHost, target)
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: target %q: %v", ErrInvalidHost, target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: target %q must use http or https", ErrInvalidHost, target)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: target %q has no host", ErrInvalidHost, target)
	}
	return nil
}

// Equal compares two domains including host order.
func (d Domain) Equal(o Domain) bool {
	if d.Name != o.Name || len(d.Hosts) != len(o.Hosts) {
		return false
	}
	for i := range d.Hosts {
		if d.Hosts[i] != o.Hosts[i] {
			return false
		}
	}
	return true
}

// DomainSummary is the aggregate view of everything hosted.
type DomainSummary struct {
	TotalDomains int               `json:"total_domains"`
	Domains      map[string]Domain `json:"domains"`
}
