package authorization

import (
	"net/http"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

const userContextKey = "current_user"

// Guard wraps the JWT middleware with authorization helpers.
type Guard struct {
	jwt *jwt.GinJWTMiddleware
}

// Guard returns the reusable guard instance for this module.
func (m *Module) Guard() *Guard {
	if m == nil || m.jwtMiddleware == nil {
		return nil
	}
	return &Guard{jwt: m.jwtMiddleware}
}

// CurrentUser returns the authenticated user attached to the request, or nil.
func CurrentUser(c *gin.Context) *User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*User)
	return user
}

// RequireAuthenticated ensures the request carries a valid token belonging to
// an active user.
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	if g == nil || g.jwt == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		}
	}
	return g.jwt.MiddlewareFunc()
}

// RequireSuperuser restricts the route to superusers. It must run after
// RequireAuthenticated.
func (g *Guard) RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Superuser privileges required"})
			return
		}
		c.Next()
	}
}
