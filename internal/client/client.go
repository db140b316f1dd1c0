package client

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

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/auth"
	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/version"
)

// DefaultTimeout covers a full provisioning run, which includes certbot
const DefaultTimeout = 15 * time.Minute

// APIError is a non-2xx response from the server
type APIError struct {
	Status    int
	Code      string
	Message   string
	Operation *domain.OperationResponse
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the server
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// Client talks to the domain-manager HTTP API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Login exchanges the operator password for a bearer token
func (c *Client) Login(ctx context.Context, password string) (*auth.LoginResponse, error) {
	var resp auth.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", auth.LoginRequest{Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) List(ctx context.Context) ([]domain.Response, error) {
	var resp []domain.Response
	err := c.do(ctx, http.MethodGet, "/api/v1/domains", nil, &resp)
	return resp, err
}

func (c *Client) Summary(ctx context.Context) (*domain.SummaryResponse, error) {
	var resp domain.SummaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/domains/summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Get(ctx context.Context, name string) (*domain.Response, error) {
	var resp domain.Response
	if err := c.do(ctx, http.MethodGet, "/api/v1/domains/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Add(ctx context.Context, req domain.CreateRequest) (*domain.OperationResponse, error) {
	var resp domain.OperationResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/domains", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Update(ctx context.Context, name string, req domain.UpdateRequest) (*domain.OperationResponse, error) {
	var resp domain.OperationResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/domains/"+url.PathEscape(name), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Remove(ctx context.Context, name string) (*domain.OperationResponse, error) {
	var resp domain.OperationResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/domains/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Version", version.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			var op domain.OperationResponse
			if len(env.Error.Details) > 0 && json.Unmarshal(env.Error.Details, &op) == nil && op.ID != "" {
				apiErr.Operation = &op
			}
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}
