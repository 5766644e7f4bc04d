package middleware

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/authz"
)

const (
	identityKey = "identity"
	userIDKey   = "userID"
)

// SetIdentity stores the caller on the Gin context.
func SetIdentity(c *gin.Context, id authz.Identity) {
	c.Set(identityKey, id)
	if id.UserID != "" {
		c.Set(userIDKey, id.UserID)
	}
}

// IdentityFrom returns the caller stored by AuthMiddleware or
// PipelineAuthMiddleware.
func IdentityFrom(c *gin.Context) (authz.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return authz.Identity{}, false
	}
	id, ok := v.(authz.Identity)
	return id, ok
}
