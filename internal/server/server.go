package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gondar-software/domain-manager/internal/api/handlers"
	"github.com/gondar-software/domain-manager/internal/api/middleware"
	"github.com/gondar-software/domain-manager/internal/config"
	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/server/routes"
	"github.com/gondar-software/domain-manager/internal/telemetry"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

// Authenticator issues and checks bearer tokens
type Authenticator interface {
	handlers.Authenticator
	middleware.TokenValidator
}

// Dependencies are the services the HTTP API exposes
type Dependencies struct {
	Auth    Authenticator
	Domains handlers.DomainService
	Config  handlers.ConfigReader
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	deps   Dependencies
	logger *logging.Logger
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Domains == nil || deps.Config == nil {
		return nil, errors.New("server: missing dependencies")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	// Create a new engine without default middleware
	router := gin.New()
	router.RedirectTrailingSlash = true
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	return &Server{
		router: router,
		cfg:    cfg,
		deps:   deps,
		logger: logging.GetGlobalLogger(),
	}, nil
}

// Init wires middleware and routes
func (s *Server) Init() error {
	routes.SetupGlobalMiddleware(s.router, s.logger, routes.GlobalConfig{
		ServiceName: telemetry.ServiceName,
		RateLimit: middleware.RateLimitConfig{
			RPS:   s.cfg.RateLimitRPS,
			Burst: s.cfg.RateLimitBurst,
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins: s.cfg.AllowedOrigins,
			Permissive:     !s.cfg.IsProduction() && len(s.cfg.AllowedOrigins) == 0,
		},
		MaxRequestBody: middleware.DefaultMaxBodySize,
	})

	h := &routes.Handlers{
		Auth:   handlers.NewAuthHandler(s.deps.Auth),
		Health: handlers.NewHealthHandler(s.deps.Config),
		Domain: handlers.NewDomainHandler(s.deps.Domains),
	}
	m := &routes.Middleware{
		Validation: middleware.NewValidationMiddleware(),
		Auth:       middleware.NewAuthMiddleware(s.deps.Auth),
	}
	routes.Setup(s.router, h, m)
	return nil
}

// Handler exposes the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully. In-flight
// provisioning requests get shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
