package middlewares

import (
	"time"

	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		// tokens ride on the websocket query string
		if c.Query("token") != "" {
			path = c.Request.URL.Path
		}

		entry := utils.InfoLogger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"ip":      c.ClientIP(),
			"user":    c.GetString(CtxUserID),
		})
		if c.Writer.Status() >= 500 {
			entry.Error(path)
			return
		}
		entry.Info(path)
	}
}
