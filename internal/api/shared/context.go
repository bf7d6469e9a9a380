package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// OwnerIDContextKey holds the authenticated caller's owner id.
	OwnerIDContextKey ContextKey = "ownerID"

	// OwnerEmailContextKey holds the caller's email claim, if any.
	OwnerEmailContextKey ContextKey = "ownerEmail"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the length of a generated trace ID in hex characters.
	TraceIDLength = 32
)

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns a random UUID rendered as 32 hex characters.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithOwner stores the authenticated caller's identity in the context.
func WithOwner(ctx context.Context, ownerID, email string) context.Context {
	ctx = context.WithValue(ctx, OwnerIDContextKey, ownerID)
	return context.WithValue(ctx, OwnerEmailContextKey, email)
}

// OwnerFromContext returns the caller identity set by WithOwner. ok is false
// when no non-empty owner id is present.
func OwnerFromContext(ctx context.Context) (ownerID, email string, ok bool) {
	ownerID, _ = ctx.Value(OwnerIDContextKey).(string)
	email, _ = ctx.Value(OwnerEmailContextKey).(string)
	return ownerID, email, ownerID != ""
}
