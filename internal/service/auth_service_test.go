package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceLogin(t *testing.T) {
	s := NewAuthService("hunter2", "test-signing-key", time.Hour)

	token, expires, err := s.Login("hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "domain-manager", claims.Issuer)
	assert.Equal(t, "operator", claims.Subject)
}

func TestAuthServiceRejectsBadPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
	}{
		{"wrong password", "hunter2", "hunter3"},
		{"empty attempt", "hunter2", ""},
		{"prefix", "hunter2", "hunter"},
		{"unset password", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAuthService(tt.password, "key", time.Hour)
			_, _, err := s.Login(tt.attempt)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	s := NewAuthService("pw", "test-signing-key", time.Hour)
	valid, _, err := s.GenerateToken()
	require.NoError(t, err)

	other := NewAuthService("pw", "another-key", time.Hour)
	foreign, _, err := other.GenerateToken()
	require.NoError(t, err)

	expired := NewAuthService("pw", "test-signing-key", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := expired.GenerateToken()
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "domain-manager",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "domain-manager"})
	eternal, err := noExpiry.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", valid, false},
		{"empty", "", true},
		{"garbage", "not.a.token", true},
		{"wrong key", foreign, true},
		{"expired", stale, true},
		{"alg none", unsigned, true},
		{"no expiry", eternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			assert.NoError(t, err)
		})
	}
}
