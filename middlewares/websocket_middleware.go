package middlewares

import (
	"net/http"

	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware authenticates the push channel. Browsers cannot
// set headers on the upgrade request, so the token travels as ?token=.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		setClaims(c, claims, token)
		c.Next()
	}
}
