package http

import (
	"fmt"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/http/handlers"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/middleware"
	"github.com/m1ll3r1337/incident-report-service/internal/web"
)

type RouterConfig struct {
	Verifier    *auth.Verifier
	AuthCookie  string
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
	// TrustedProxies may set the client IP through X-Forwarded-For. Nil trusts nobody.
	TrustedProxies []string
}

func NewRouter(log *logger.Logger, level logger.Level, cfg RouterConfig, generate *handlers.Generate, images *handlers.Stego, system *handlers.System, pages *web.Handler) (*gin.Engine, error) {
	if level == logger.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// Order matters
	r.Use(middleware.RequestID())
	r.Use(middleware.GinStructuredLogger(log, level))
	r.Use(middleware.Error(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Auth(cfg.Verifier, cfg.AuthCookie, log))

	setupRoutes(r, log, cfg, generate, images, system, pages)
	return r, nil
}

func setupRoutes(r *gin.Engine, log *logger.Logger, cfg RouterConfig, generate *handlers.Generate, images *handlers.Stego, system *handlers.System, pages *web.Handler) {
	r.GET("/healthz", system.Health)
	r.GET("/", pages.Index)
	if cfg.Limiter != nil {
		r.POST("/report", cfg.Limiter.Middleware(log), pages.Submit)
	} else {
		r.POST("/report", pages.Submit)
	}

	api := r.Group("/api")
	api.Use(middleware.CORS(cfg.CORSOrigins))
	if cfg.Limiter != nil {
		api.Use(cfg.Limiter.Middleware(log))
	}
	{
		api.GET("/openapi.json", system.OpenAPI)
		api.POST("/generate-text", generate.Text)
		api.POST("/generate-image", generate.Images)
		api.POST("/encode", images.Encode)
		api.POST("/decode", images.Decode)
		api.OPTIONS("/*path", func(ctx *gin.Context) { ctx.Status(nethttp.StatusNoContent) })
	}
}
