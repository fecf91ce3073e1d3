package actorctx

import (
	"context"

	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/domain/identity"
)

type ctxKey struct{}

// Principal is the authenticated caller of one request. It is built once by
// the auth middleware and only read afterwards.
type Principal struct {
	ID     int64
	Email  string
	Role   identity.Role
	Claims auth.Claims
}

func FromClaims(c auth.Claims) Principal {
	return Principal{ID: c.Subject, Email: c.Email, Role: c.Role, Claims: c}
}

func (p Principal) IsAdmin() bool {
	return p.Role == identity.RoleAdmin
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)

	return p, ok && p.ID != 0
}
