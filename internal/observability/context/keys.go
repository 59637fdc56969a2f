// Package context carries request-scoped correlation values for logs and spans.
package context

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "observability_request_id"
	workspaceIDKey contextKey = "observability_workspace_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithWorkspaceID records the workspace for log correlation only. Services
// take the workspace as an explicit argument and never read it from here.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	if ctx == nil || workspaceID == "" {
		return ctx
	}
	return context.WithValue(ctx, workspaceIDKey, workspaceID)
}

func WorkspaceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(workspaceIDKey).(string)
	return value
}
