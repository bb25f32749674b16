package remotedb

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"overview_back/authorization"
)

// ConnectionRequest carries a candidate remote database URL.
type ConnectionRequest struct {
	URL string `json:"url" binding:"required"`
}

// RegisterRoutes mounts the superuser-only /db-connection endpoints.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, manager *Manager) {
	group := router.Group("/db-connection")
	group.Use(guard.RequireAuthenticated(), guard.RequireSuperuser())

	group.POST("/test", func(c *gin.Context) {
		var req ConnectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
			return
		}

		ok, message, version := manager.Test(c.Request.Context(), req.URL)
		c.JSON(http.StatusOK, gin.H{
			"success":        ok,
			"message":        message,
			"server_version": version,
		})
	})

	group.POST("/save", func(c *gin.Context) {
		var req ConnectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
			return
		}

		// Never persist or activate a URL that fails the probe.
		ok, message, version := manager.Test(c.Request.Context(), req.URL)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": message})
			return
		}

		if err := manager.SaveURL(req.URL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist connection URL"})
			return
		}
		if err := manager.Activate(req.URL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate connection pool"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"message":        "Connection verified, saved to .env, and active.",
			"server_version": version,
		})
	})

	group.GET("/status", func(c *gin.Context) {
		configured, reachable, message := manager.Status(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"configured": configured,
			"reachable":  reachable,
			"message":    message,
		})
	})
}

const dbContextKey = "remote_db"

// Pool supplies the live remote database handle. Manager implements it;
// dependents accept the interface so the pool can be swapped underneath them.
type Pool interface {
	Current() *gorm.DB
}

// RequireDatabase aborts with 503 when no remote pool has been activated and
// otherwise attaches the pool handle to the request context.
func RequireDatabase(pool Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := pool.Current()
		if db == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Remote database not configured. Use POST /db-connection/save to set it up.",
			})
			return
		}
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// DatabaseFrom returns the pool attached by RequireDatabase, or nil.
func DatabaseFrom(c *gin.Context) *gorm.DB {
	value, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, _ := value.(*gorm.DB)
	return db
}
