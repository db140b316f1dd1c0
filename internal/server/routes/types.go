package routes

import (
	"github.com/gondar-software/domain-manager/internal/api/handlers"
	"github.com/gondar-software/domain-manager/internal/api/middleware"
)

// Handlers contains all the route handlers
type Handlers struct {
	Auth   *handlers.AuthHandler
	Health *handlers.HealthHandler
	Domain *handlers.DomainHandler
}

// Middleware contains all the middleware
type Middleware struct {
	Validation *middleware.ValidationMiddleware
	Auth       *middleware.AuthMiddleware
}
