package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "Expected empty trace ID in original context")

	ctxWithTrace := SetTraceID(ctx)

	traceID := GetTraceID(ctxWithTrace)
	require.Len(t, traceID, TraceIDLength)
	_, err := hex.DecodeString(traceID)
	assert.NoError(t, err, "trace ID should be hex")

	assert.Empty(t, GetTraceID(ctx), "Expected original context to remain unchanged")
	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(ctx)), "trace IDs should be unique")
}

func TestGetTraceIDWithInvalidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestOwnerContext(t *testing.T) {
	_, _, ok := OwnerFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithOwner(context.Background(), "user-1", "u1@example.com")
	owner, email, ok := OwnerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", owner)
	assert.Equal(t, "u1@example.com", email)

	_, _, ok = OwnerFromContext(WithOwner(context.Background(), "", "x@example.com"))
	assert.False(t, ok, "empty owner id is not an identity")
}
