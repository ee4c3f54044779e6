package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxTenantID
	ctxRole
)

// WithIdentity stores the verified caller identity on ctx. Everything past
// the auth middleware reads identity from here, never from headers.
func WithIdentity(ctx context.Context, userID, tenantID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	return context.WithValue(ctx, ctxRole, role)
}

func UserID(ctx context.Context) (string, error)   { return identityValue(ctx, ctxUserID, "user_id") }
func TenantID(ctx context.Context) (string, error) { return identityValue(ctx, ctxTenantID, "tenant_id") }
func Role(ctx context.Context) (string, error)     { return identityValue(ctx, ctxRole, "role") }

func identityValue(ctx context.Context, key ctxKey, name string) (string, error) {
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New(name + " not in context")
}
