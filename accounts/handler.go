package accounts

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"overview_back/authorization"
	"overview_back/billing"
	"overview_back/remotedb"
)

// RegisterRoutes mounts the account listing, per-account analytics, and
// billing-view endpoints.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, pool remotedb.Pool, billingClient *billing.Client) {
	group := router.Group("/accounts")
	group.Use(guard.RequireAuthenticated(), remotedb.RequireDatabase(pool))

	group.GET("/", func(c *gin.Context) {
		accounts, err := remotedb.ListAccounts(c.Request.Context(), remotedb.DatabaseFrom(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts, "total": len(accounts)})
	})

	group.GET("/:account_unique_id/sessions/count", func(c *gin.Context) {
		account, ok := resolveAccount(c)
		if !ok {
			return
		}
		count, err := remotedb.SessionCount(c.Request.Context(), remotedb.DatabaseFrom(c), account.AccountUniqueID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "period_days": remotedb.AnalyticsWindowDays})
	})

	group.GET("/:account_unique_id/messages/count", func(c *gin.Context) {
		account, ok := resolveAccount(c)
		if !ok {
			return
		}
		count, err := remotedb.MessageCount(c.Request.Context(), remotedb.DatabaseFrom(c), account.AccountUniqueID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "period_days": remotedb.AnalyticsWindowDays})
	})

	group.GET("/:account_unique_id/messages/by-sentiment", func(c *gin.Context) {
		account, ok := resolveAccount(c)
		if !ok {
			return
		}
		rows, err := remotedb.MessagesBySentiment(c.Request.Context(), remotedb.DatabaseFrom(c), account.AccountUniqueID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute sentiment breakdown"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sentiments": rows, "period_days": remotedb.AnalyticsWindowDays})
	})

	group.GET("/:account_unique_id/stripe", func(c *gin.Context) {
		account, ok := resolveAccount(c)
		if !ok {
			return
		}
		view, err := billingClient.Aggregate(c.Request.Context(), remotedb.DatabaseFrom(c), account)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load billing data"})
			return
		}
		c.JSON(http.StatusOK, view)
	})
}

// resolveAccount looks up the path account or replies 404. The lookup always
// happens before any analytics query runs.
func resolveAccount(c *gin.Context) (*remotedb.Account, bool) {
	account, err := remotedb.FindAccountByUniqueID(c.Request.Context(), remotedb.DatabaseFrom(c), c.Param("account_unique_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		}
		return nil, false
	}
	return account, true
}
