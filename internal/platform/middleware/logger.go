// Package middleware holds the gin middleware shared by the API and the web form.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
)

// GinStructuredLogger writes one line per request. 4xx responses log at warn, 5xx at error,
// and anything below minLevel is dropped.
func GinStructuredLogger(l *logger.Logger, minLevel logger.Level) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path

		ctx.Next()

		status := ctx.Writer.Status()

		level := logger.LevelInfo
		switch {
		case status >= 500:
			level = logger.LevelError
		case status >= 400:
			level = logger.LevelWarn
		}
		if level < minLevel {
			return
		}

		args := []any{
			"status", status,
			"target", ctx.Request.Method + " " + path,
			"route", ctx.FullPath(),
			"ip", ctx.ClientIP(),
			"latency_ms", float64(time.Since(start)) / float64(time.Millisecond),
			"size", ctx.Writer.Size(),
			"request_id", GetRequestID(ctx),
		}
		if u, ok := (auth.FromContext{}).Current(ctx.Request.Context()); ok {
			args = append(args, "user_id", u.ID)
		}

		l.Log(ctx.Request.Context(), level, "http", args...)
	}
}
