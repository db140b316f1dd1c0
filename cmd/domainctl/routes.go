package main

import (
	"fmt"
	"strings"

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/models"
)

// parseRoute reads [websocket:]PATH=TARGET, e.g. "/=http://localhost:9000"
// or "websocket:/ws=http://localhost:9001".
func parseRoute(s string) (domain.HostRequest, error) {
	left, target, ok := strings.Cut(s, "=")
	if !ok || target == "" {
		return domain.HostRequest{}, fmt.Errorf("route %q: expected [websocket:]PATH=TARGET", s)
	}

	hostType := models.HostTypeDefault
	path := left
	if !strings.HasPrefix(left, "/") {
		prefix, rest, found := strings.Cut(left, ":")
		if !found {
			return domain.HostRequest{}, fmt.Errorf("route %q: path must start with /", s)
		}
		hostType = models.HostType(prefix)
		if !hostType.Valid() {
			return domain.HostRequest{}, fmt.Errorf("route %q: unknown type %q", s, prefix)
		}
		path = rest
	}

	return domain.HostRequest{Type: string(hostType), Path: path, Host: target}, nil
}

func parseRoutes(specs []string) ([]domain.HostRequest, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --route is required")
	}
	hosts := make([]domain.HostRequest, 0, len(specs))
	for _, s := range specs {
		h, err := parseRoute(s)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}
