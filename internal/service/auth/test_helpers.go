package auth

import (
	"context"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/stretchr/testify/require"
)

// DefaultJWTConfig returns a standard configuration for JWT authentication suitable for testing.
func DefaultJWTConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "test-jwt-secret-that-is-32-chars-long",
		TokenLifetimeMinutes: 60,
	}
}

// RequireTestJWTService creates a JWT service with DefaultJWTConfig.
func RequireTestJWTService(t *testing.T) JWTService {
	t.Helper()
	service, err := NewJWTService(DefaultJWTConfig())
	require.NoError(t, err, "Failed to create test JWT service")
	return service
}

// GenerateAuthHeaderForTestingT returns a "Bearer <token>" header value for
// the identity, signed with DefaultJWTConfig.
func GenerateAuthHeaderForTestingT(t *testing.T, subject, email string) string {
	t.Helper()
	token, err := RequireTestJWTService(t).GenerateToken(context.Background(), Identity{Subject: subject, Email: email})
	require.NoError(t, err, "Failed to generate auth header")
	return "Bearer " + token
}
