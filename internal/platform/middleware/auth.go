package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
)

// Auth resolves the signed-in user from the Authorization header or the session cookie.
// A missing, invalid or expired token leaves the request anonymous.
func Auth(v *auth.Verifier, cookie string, log *logger.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !v.Enabled() {
			ctx.Next()
			return
		}

		raw := ctx.GetHeader("Authorization")
		if raw == "" && cookie != "" {
			if c, err := ctx.Cookie(cookie); err == nil {
				raw = c
			}
		}
		if raw == "" {
			ctx.Next()
			return
		}

		u, err := v.Verify(raw)
		if err != nil {
			code := ""
			if e, ok := errs.As(err); ok {
				code = e.Code
			}
			log.Warn(ctx.Request.Context(), "session token ignored", "code", code, "error", err)
			ctx.Next()
			return
		}

		ctx.Request = ctx.Request.WithContext(auth.WithUser(ctx.Request.Context(), u))
		ctx.Next()
	}
}
