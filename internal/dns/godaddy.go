package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrProvider = errors.New("dns provider error")

// Record is one DNS record inside a zone. Name is relative to the zone,
// "@" for the apex.
type Record struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

// Provider manages records on an external DNS service.
type Provider interface {
	UpsertRecords(ctx context.Context, zone string, records []Record) error
	DeleteRecord(ctx context.Context, zone, recordType, name string) error
}

// GoDaddyProvider talks to the GoDaddy v1 domains API.
type GoDaddyProvider struct {
	baseURL string
	key     string
	secret  string
	client  *http.Client
}

func NewGoDaddyProvider(baseURL, key, secret string, timeout time.Duration) *GoDaddyProvider {
	if baseURL == "" {
		baseURL = "https://api.godaddy.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoDaddyProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

type godaddyRecordData struct {
	Data string `json:"data"`
	TTL  int    `json:"ttl"`
}

// UpsertRecords replaces each record's type/name set with the given value,
// so repeating an add leaves one record per type and name.
func (p *GoDaddyProvider) UpsertRecords(ctx context.Context, zone string, records []Record) error {
	for _, r := range records {
		ttl := r.TTL
		if ttl == 0 {
			ttl = 600
		}
		body, err := json.Marshal([]godaddyRecordData{{Data: r.Data, TTL: ttl}})
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if err := p.do(ctx, http.MethodPut, p.recordURL(zone, r.Type, r.Name), body); err != nil {
			return fmt.Errorf("failed to set %s %s in %s: %w", r.Type, r.Name, zone, err)
		}
	}
	return nil
}

// DeleteRecord removes every record with the type and name. A record that
// does not exist is not an error.
func (p *GoDaddyProvider) DeleteRecord(ctx context.Context, zone, recordType, name string) error {
	err := p.do(ctx, http.MethodDelete, p.recordURL(zone, recordType, name), nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s %s in %s: %w", recordType, name, zone, err)
	}
	return nil
}

func (p *GoDaddyProvider) recordURL(zone, recordType, name string) string {
	return fmt.Sprintf("%s/v1/domains/%s/records/%s/%s",
		p.baseURL, url.PathEscape(zone), url.PathEscape(recordType), url.PathEscape(name))
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrProvider, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrProvider
}

func (p *GoDaddyProvider) do(ctx context.Context, method, endpoint string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("sso-key %s:%s", p.key, p.secret))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
