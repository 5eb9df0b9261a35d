package middleware

import (
	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/errors"
)

// RequireAuth rejects requests whose RequestContext carries no verified
// identity. Token parsing itself happens in NewRequestContext; this stage
// only enforces that it succeeded.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if !rc.Authenticated() {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
