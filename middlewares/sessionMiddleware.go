package middlewares

import (
	"net/http"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the session token header against redis. Requests
// without a token pass through unauthenticated; route handlers that need a
// user fail on GetSessionUser instead.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
