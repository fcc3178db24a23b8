package auth

import (
	"github.com/gin-gonic/gin"
)

// Roles the upstream auth layer can assign.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const identityKey = "auth.identity"

// Identity is the authenticated caller. Handlers pass it explicitly into
// service calls; services never read auth state from anywhere else.
type Identity struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller holds the elevated role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Authenticated reports whether a user id is present at all.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// Middleware reads the identity headers set by the upstream API gateway
// (which has already verified the token) into the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{
			UserID: c.GetHeader("X-User-Id"),
			Role:   c.GetHeader("X-User-Role"),
		}
		if id.Role == "" {
			id.Role = RoleCustomer
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// FromContext returns the identity placed by Middleware. The zero Identity
// (unauthenticated) is returned when the middleware did not run.
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
