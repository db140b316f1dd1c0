package auth

import "time"

// LoginRequest represents the login request payload
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token issued for a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
