package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "domain-manager"

// AuthService exchanges the operator password for signed bearer tokens.
type AuthService struct {
	password   []byte
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewAuthService(password, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &AuthService{
		password:   []byte(password),
		signingKey: []byte(jwtSecret),
		ttl:        ttl,
		now:        time.Now,
	}
}

// ValidatePassword compares in constant time. An unset password matches nothing.
func (s *AuthService) ValidatePassword(password string) bool {
	if len(s.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.password, []byte(password)) == 1
}

// Login checks password and returns a token with its expiry.
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if !s.ValidatePassword(password) {
		return "", time.Time{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return s.GenerateToken()
}

// GenerateToken signs an HS256 token valid for the configured lifetime.
func (s *AuthService) GenerateToken() (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "operator",
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken parses tokenString and returns its claims. Every failure
// wraps ErrUnauthorized.
func (s *AuthService) ValidateToken(tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token has expired", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims, nil
}
