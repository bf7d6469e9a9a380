package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockJWTService is a mock implementation of the JWTService interface for testing.
type MockJWTService struct {
	GenerateTokenFunc func(ctx context.Context, identity Identity) (string, error)
	ValidateTokenFunc func(ctx context.Context, tokenString string) (*Claims, error)

	// Fixed fields for simple cases
	Token           string
	TokenError      error
	ValidationError error
	Claims          *Claims
}

var _ JWTService = (*MockJWTService)(nil)

// NewMockJWTService returns a mock whose tokens validate to the given identity.
func NewMockJWTService(identity Identity) *MockJWTService {
	now := time.Now()
	return &MockJWTService{
		Token: "mock-jwt-token",
		Claims: &Claims{
			Subject:   identity.Subject,
			Email:     identity.Email,
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
			ID:        uuid.New().String(),
		},
	}
}

// GenerateToken implements JWTService.
func (m *MockJWTService) GenerateToken(ctx context.Context, identity Identity) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(ctx, identity)
	}
	return m.Token, m.TokenError
}

// ValidateToken implements JWTService.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, tokenString)
	}
	if m.ValidationError != nil {
		return nil, m.ValidationError
	}
	return m.Claims, nil
}
