package dns

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// AddressResolver reports the public address that records should point at.
type AddressResolver interface {
	PublicAddress(ctx context.Context) (string, error)
}

// IPifyResolver asks an ipify-compatible endpoint, which answers with the
// caller's address as plain text.
type IPifyResolver struct {
	url    string
	client *http.Client
}

func NewIPifyResolver(url string, timeout time.Duration) *IPifyResolver {
	if url == "" {
		url = "https://api.ipify.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPifyResolver{url: url, client: &http.Client{Timeout: timeout}}
}

func (r *IPifyResolver) PublicAddress(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch public IP: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read public IP: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public IP service returned status %d", resp.StatusCode)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("public IP service returned %q", ip)
	}
	return ip, nil
}

// StaticResolver always returns the same address.
type StaticResolver string

func (s StaticResolver) PublicAddress(context.Context) (string, error) {
	return string(s), nil
}
