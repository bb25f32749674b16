package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"overview_back/authorization"
	"overview_back/remotedb"
)

// RegisterRoutes mounts the global 30-day analytics endpoints. Every route
// requires authentication and an active remote pool.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, pool remotedb.Pool) {
	group := router.Group("/analytics")
	group.Use(guard.RequireAuthenticated(), remotedb.RequireDatabase(pool))

	group.GET("/sessions/count", func(c *gin.Context) {
		count, err := remotedb.SessionCount(c.Request.Context(), remotedb.DatabaseFrom(c), "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "period_days": remotedb.AnalyticsWindowDays})
	})

	group.GET("/messages/count", func(c *gin.Context) {
		count, err := remotedb.MessageCount(c.Request.Context(), remotedb.DatabaseFrom(c), "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "period_days": remotedb.AnalyticsWindowDays})
	})

	group.GET("/messages/by-sentiment", func(c *gin.Context) {
		rows, err := remotedb.MessagesBySentiment(c.Request.Context(), remotedb.DatabaseFrom(c), "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute sentiment breakdown"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sentiments": rows, "period_days": remotedb.AnalyticsWindowDays})
	})
}
