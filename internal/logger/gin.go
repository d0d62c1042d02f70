package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GinMiddleware logs one line per request.
func GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path

		ctx.Next()

		entry := Log.WithFields(logrus.Fields{
			"method":   ctx.Request.Method,
			"path":     path,
			"status":   ctx.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   ctx.ClientIP(),
		})

		if len(ctx.Errors) > 0 {
			entry.Error(ctx.Errors.String())
			return
		}

		switch status := ctx.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
