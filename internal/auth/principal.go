package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request. The bearer middleware
// builds it from the session token and hands it down through the context.
type Principal struct {
	UserID uuid.UUID
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the Principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
