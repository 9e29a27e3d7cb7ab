package middleware

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// OwnerIDKey is the context key for the authenticated user's owner ID
	OwnerIDKey contextKey = "owner_id"

	// UsernameKey is the context key for the authenticated username
	UsernameKey contextKey = "username"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetOwnerIDFromContext retrieves the authenticated owner ID from context.
// Empty string means the request was not authenticated.
func GetOwnerIDFromContext(ctx context.Context) string {
	if val := ctx.Value(OwnerIDKey); val != nil {
		if ownerID, ok := val.(string); ok {
			return ownerID
		}
	}
	return ""
}

// WithOwnerID adds the authenticated owner ID to the context
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetUsernameFromContext retrieves the authenticated username from context
func GetUsernameFromContext(ctx context.Context) string {
	if val := ctx.Value(UsernameKey); val != nil {
		if username, ok := val.(string); ok {
			return username
		}
	}
	return ""
}

// WithUsername adds the authenticated username to the context
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}
