// Package requestid attaches a stable correlation id to a context.Context.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithRequestID returns a context carrying the given id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// New generates a fresh request id and returns a context carrying it.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// FromContext returns the request id stored in ctx, generating one if absent.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
