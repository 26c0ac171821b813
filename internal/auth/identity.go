package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated player behind a request
type Identity struct {
	PlayerID uuid.UUID
	Username string
}

type identityKey struct{}

// IdentityKey is the gin context key the middleware stores the identity under
const IdentityKey = "identity"

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.PlayerID != uuid.Nil
}

// SetIdentity stores id on both the gin context and the request context
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(IdentityKey, id)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}

// GetIdentity returns the identity set by the auth middleware
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(Identity); ok && id.PlayerID != uuid.Nil {
			return id, true
		}
	}
	return FromContext(c.Request.Context())
}
