// Package identity resolves who is calling. An unresolved caller is not an
// error: it is the anonymous identity, which the policy layer accepts as
// input like any other.
package identity

import (
	"context"

	"storefront/models"
)

type Identity struct {
	ID            string
	Role          models.Role
	authenticated bool
}

func Anonymous() Identity {
	return Identity{}
}

func New(id string, role models.Role) Identity {
	if id == "" {
		return Anonymous()
	}
	if !role.Valid() {
		role = models.RoleCustomer
	}
	return Identity{ID: id, Role: role, authenticated: true}
}

func (i Identity) Authenticated() bool { return i.authenticated }

func (i Identity) IsAdmin() bool { return i.authenticated && i.Role == models.RoleAdmin }

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the anonymous identity when none was attached.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok {
		return Anonymous()
	}
	return id
}
