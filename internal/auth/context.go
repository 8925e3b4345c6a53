// Package auth carries the authenticated caseworker through request contexts.
package auth

import "context"

type contextKey struct{}

type AuthContext struct {
	CaseworkerID int64
	Email        string
	SessionID    int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// CaseworkerID returns the authenticated caseworker, or 0 outside RequireAuth.
func CaseworkerID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.CaseworkerID
}

func SessionID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.SessionID
}
