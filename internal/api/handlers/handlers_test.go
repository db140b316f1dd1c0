package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/api/middleware"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDomains struct {
	hosted map[string]models.Domain
	err    error
	calls  []string
}

func newFakeDomains(domains ...models.Domain) *fakeDomains {
	f := &fakeDomains{hosted: make(map[string]models.Domain)}
	for _, d := range domains {
		f.hosted[d.Name] = d
	}
	return f
}

func qualify(name string) string {
	if strings.HasSuffix(name, ".example.com") {
		return name
	}
	return name + ".example.com"
}

func (f *fakeDomains) List(context.Context) ([]models.Domain, error) {
	out := make([]models.Domain, 0, len(f.hosted))
	for _, d := range f.hosted {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDomains) Get(_ context.Context, name string) (models.Domain, error) {
	d, ok := f.hosted[qualify(name)]
	if !ok {
		return models.Domain{}, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	return d, nil
}

func (f *fakeDomains) Summary(context.Context) (models.DomainSummary, error) {
	return models.DomainSummary{TotalDomains: len(f.hosted), Domains: f.hosted}, nil
}

func (f *fakeDomains) op(kind service.OperationKind, name string, hosts []models.Host) (*service.Operation, error) {
	f.calls = append(f.calls, string(kind)+" "+name)
	op := &service.Operation{ID: "op-1", Kind: kind, Domain: qualify(name), Hosts: hosts, State: service.StateCommitted}
	if f.err != nil {
		op.State = service.StateRolledBack
		op.Error = f.err.Error()
		return op, f.err
	}
	return op, nil
}

func (f *fakeDomains) Add(_ context.Context, name string, hosts []models.Host) (*service.Operation, error) {
	return f.op(service.OperationAdd, name, hosts)
}

func (f *fakeDomains) Update(_ context.Context, name string, hosts []models.Host) (*service.Operation, error) {
	return f.op(service.OperationUpdate, name, hosts)
}

func (f *fakeDomains) Remove(_ context.Context, name string) (*service.Operation, error) {
	return f.op(service.OperationRemove, name, nil)
}

func newDomainRouter(domains DomainService) *gin.Engine {
	v := middleware.NewValidationMiddleware()
	h := NewDomainHandler(domains)

	router := gin.New()
	g := router.Group("/api/v1/domains")
	g.GET("", h.ListDomains)
	g.GET("/summary", h.GetSummary)
	g.GET("/:domain", h.GetDomain)
	g.POST("", v.ValidateCreateDomainRequest(), h.CreateDomain)
	g.PUT("/:domain", v.ValidateUpdateDomainRequest(), h.UpdateDomain)
	g.DELETE("/:domain", h.DeleteDomain)
	return router
}

func do(router http.Handler, method, path, body string) (*httptest.ResponseRecorder, common.APIResponse) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp common.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

var blog = models.Domain{
	Name:  "blog.example.com",
	Hosts: []models.Host{{Type: models.HostTypeDefault, Path: "/", Target: "http://localhost:9000"}},
}

func TestDomainHandlerReads(t *testing.T) {
	router := newDomainRouter(newFakeDomains(blog))

	w, resp := do(router, http.MethodGet, "/api/v1/domains", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"domain":"blog.example.com"`)
	assert.Contains(t, w.Body.String(), `"host":"http://localhost:9000"`)

	w, _ = do(router, http.MethodGet, "/api/v1/domains/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_domains":1`)

	w, _ = do(router, http.MethodGet, "/api/v1/domains/blog", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(router, http.MethodGet, "/api/v1/domains/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(common.ErrCodeNotFound), resp.Error.Code)
}

func TestDomainHandlerCreate(t *testing.T) {
	domains := newFakeDomains()
	router := newDomainRouter(domains)

	w, resp := do(router, http.MethodPost, "/api/v1/domains",
		`{"domain":"Blog","hosts":[{"type":"default","path":"/","host":"http://localhost:9000"}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"add blog"}, domains.calls)
	assert.Contains(t, w.Body.String(), `"state":"committed"`)
	assert.Contains(t, w.Body.String(), `"result":{"domain":"blog.example.com"`)

	w, resp = do(router, http.MethodPost, "/api/v1/domains", `{"domain":"blog","hosts":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(common.ErrCodeValidation), resp.Error.Code)

	w, resp = do(router, http.MethodPost, "/api/v1/domains",
		`{"domain":"www.shop","hosts":[{"type":"default","path":"/","host":"http://localhost:9000"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(common.ErrCodeValidation), resp.Error.Code)
	assert.Equal(t, []string{"add blog"}, domains.calls)
}

func TestDomainHandlerProvisionFailure(t *testing.T) {
	domains := newFakeDomains()
	domains.err = fmt.Errorf("%w: certificate: challenge failed", service.ErrProvisionFailed)
	router := newDomainRouter(domains)

	w, resp := do(router, http.MethodPost, "/api/v1/domains",
		`{"domain":"blog","hosts":[{"type":"default","path":"/","host":"http://localhost:9000"}]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(common.ErrCodeProvisionFailed), resp.Error.Code)
	assert.Contains(t, w.Body.String(), `"state":"rolled_back"`)

	domains.err = fmt.Errorf("%w: dns down", service.ErrManualIntervention)
	w, resp = do(router, http.MethodDelete, "/api/v1/domains/blog", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(common.ErrCodeManualIntervention), resp.Error.Code)

	domains.err = service.ErrShuttingDown
	w, _ = do(router, http.MethodDelete, "/api/v1/domains/blog", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDomainHandlerUpdate(t *testing.T) {
	domains := newFakeDomains(blog)
	router := newDomainRouter(domains)

	w, _ := do(router, http.MethodPut, "/api/v1/domains/blog.example.com",
		`{"hosts":[{"type":"websocket","path":"/ws","host":"http://localhost:9001"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"update blog.example.com"}, domains.calls)

	w, _ = do(router, http.MethodPut, "/api/v1/domains/unknown",
		`{"hosts":[{"type":"default","path":"/","host":"http://localhost:9001"}]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, domains.calls, 1)
}

func TestDomainHandlerDelete(t *testing.T) {
	domains := newFakeDomains(blog)
	router := newDomainRouter(domains)

	w, _ := do(router, http.MethodDelete, "/api/v1/domains/Blog.Example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"remove blog.example.com"}, domains.calls)
	assert.NotContains(t, w.Body.String(), `"result"`)
}

type fakeAuth struct{}

func (fakeAuth) Login(password string) (string, time.Time, error) {
	if password != "secret" {
		return "", time.Time{}, service.ErrUnauthorized
	}
	return "signed-token", time.Unix(1700000000, 0).UTC(), nil
}

func TestAuthHandlerLogin(t *testing.T) {
	router := gin.New()
	router.POST("/login", middleware.NewValidationMiddleware().ValidateLoginRequest(), NewAuthHandler(fakeAuth{}).Login)

	w, resp := do(router, http.MethodPost, "/login", `{"password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"token":"signed-token"`)

	w, resp = do(router, http.MethodPost, "/login", `{"password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(common.ErrCodeUnauthorized), resp.Error.Code)

	w, _ = do(router, http.MethodPost, "/login", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type fakeConfig struct{ err error }

func (f fakeConfig) Text(context.Context) (string, error) { return "", f.err }

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	healthy := NewHealthHandler(fakeConfig{})
	router.GET("/health", healthy.Check)
	router.GET("/version", healthy.Version)
	router.GET("/broken", NewHealthHandler(fakeConfig{err: errors.New("permission denied")}).Check)

	w, _ := do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := do(router, http.MethodGet, "/broken", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(common.ErrCodeUnavailable), resp.Error.Code)

	w, _ = do(router, http.MethodGet, "/version?client_version=0.0.1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"client_version":"0.0.1"`)
}
