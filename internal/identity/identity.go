// Package identity carries the authenticated caller through a request
// context.
package identity

import (
	"context"

	"github.com/kurokana/SiTeJo-Web/internal/lifecycle"
	"github.com/kurokana/SiTeJo-Web/internal/models"
)

type Identity struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// Actor converts the identity into the lifecycle's actor.
func (i Identity) Actor() lifecycle.Actor {
	return lifecycle.Actor{ID: i.ID, Role: i.Role}
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CurrentUser returns the authenticated caller, if any.
func CurrentUser(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// HasRole reports whether the caller holds one of roles.
func HasRole(ctx context.Context, roles ...models.Role) bool {
	id, ok := CurrentUser(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
