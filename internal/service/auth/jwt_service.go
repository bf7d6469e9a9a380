// Package auth issues and verifies the bearer tokens that identify task
// owners. The token subject is the owner id; the optional email claim is
// where expiry notifications are sent.
package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT for the given identity.
	GenerateToken(ctx context.Context, identity Identity) (string, error)

	// ValidateToken validates the token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrMissingSubject, or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Identity is who a token is minted for.
type Identity struct {
	Subject string
	Email   string
}

// Claims represents the verified contents of a token.
type Claims struct {
	// Subject is the owner id every task operation is scoped to.
	Subject string `json:"sub,omitempty"`

	// Email is optional; tasks created without it are never notified.
	Email string `json:"email,omitempty"`

	Issuer    string    `json:"iss,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
