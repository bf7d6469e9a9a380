package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestService(t *testing.T, cfg config.AuthConfig, now time.Time) *hmacJWTService {
	t.Helper()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	svc, err := newJWTService(cfg, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, config.AuthConfig{TokenLifetimeMinutes: 30, Issuer: "tracker", Audience: "tasks"}, fixedTime)

	token, err := svc.GenerateToken(context.Background(), Identity{Subject: "user-1", Email: "u1@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, "tracker", claims.Issuer)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(30*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, config.AuthConfig{}, time.Now())
	_, err := svc.GenerateToken(context.Background(), Identity{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	identity := Identity{Subject: "user-1"}

	sign := func(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		verify  config.AuthConfig
		wantErr error
	}{
		{
			name: "expired token",
			token: func(t *testing.T) string {
				gen := newTestService(t, config.AuthConfig{TokenLifetimeMinutes: 60}, fixedTime.Add(-3*time.Hour))
				tok, err := gen.GenerateToken(context.Background(), identity)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				return sign(t, jwt.RegisteredClaims{
					Subject:   "user-1",
					NotBefore: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					ExpiresAt: jwt.NewNumericDate(fixedTime.Add(2 * time.Hour)),
				}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				gen := newTestService(t, config.AuthConfig{JWTSecret: "wrong-secret-that-is-long-enough-for-testing"}, fixedTime)
				tok, err := gen.GenerateToken(context.Background(), identity)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty",
			token:   func(*testing.T) string { return "" },
			wantErr: ErrMissingToken,
		},
		{
			name: "wrong signing method",
			token: func(t *testing.T) string {
				return sign(t, jwt.RegisteredClaims{
					Subject:   "user-1",
					ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
				}, jwt.SigningMethodHS512, []byte(testSecret))
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return sign(t, jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
				}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: ErrMissingSubject,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				return sign(t, jwt.RegisteredClaims{Subject: "user-1"}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "issuer mismatch",
			token: func(t *testing.T) string {
				gen := newTestService(t, config.AuthConfig{Issuer: "someone-else"}, fixedTime)
				tok, err := gen.GenerateToken(context.Background(), identity)
				require.NoError(t, err)
				return tok
			},
			verify:  config.AuthConfig{Issuer: "tracker"},
			wantErr: ErrInvalidToken,
		},
		{
			name: "audience mismatch",
			token: func(t *testing.T) string {
				gen := newTestService(t, config.AuthConfig{Audience: "billing"}, fixedTime)
				tok, err := gen.GenerateToken(context.Background(), identity)
				require.NoError(t, err)
				return tok
			},
			verify:  config.AuthConfig{Audience: "tasks"},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t, tt.verify, fixedTime)
			claims, err := svc.ValidateToken(context.Background(), tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestGenerateAuthHeaderForTestingT(t *testing.T) {
	header := GenerateAuthHeaderForTestingT(t, "user-1", "")
	require.Contains(t, header, "Bearer ")

	claims, err := RequireTestJWTService(t).ValidateToken(context.Background(), header[len("Bearer "):])
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Empty(t, claims.Email)
}
