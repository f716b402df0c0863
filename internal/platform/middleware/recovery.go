package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
)

// Recovery turns a panic into the same JSON body the error middleware writes for internal errors.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := GetRequestID(ctx)
			log.Error(ctx.Request.Context(), "panic recovered",
				"error", rec,
				"stack", string(debug.Stack()),
				"target", ctx.Request.Method+" "+ctx.Request.URL.Path,
				"request_id", rid,
			)
			if ctx.Writer.Written() {
				ctx.Abort()
				return
			}
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Error:     "internal server error",
				Kind:      errs.KindInternal,
				Code:      "PANIC",
				RequestID: rid,
			})
		}()
		ctx.Next()
	}
}
