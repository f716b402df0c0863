package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/client"
	"github.com/m1ll3r1337/incident-report-service/internal/form"
	"github.com/m1ll3r1337/incident-report-service/internal/generation"
	"github.com/m1ll3r1337/incident-report-service/internal/guard"
	"github.com/m1ll3r1337/incident-report-service/internal/http"
	"github.com/m1ll3r1337/incident-report-service/internal/http/handlers"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/config"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/middleware"
	guardredis "github.com/m1ll3r1337/incident-report-service/internal/platform/redis/guard"
	healthredis "github.com/m1ll3r1337/incident-report-service/internal/platform/redis/health"
	"github.com/m1ll3r1337/incident-report-service/internal/web"
)

var build = "develop"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLogLevel(cfg.Log.Level)
	log := logger.NewWithTrace(os.Stdout, logLevel, "REPORT", middleware.RequestIDFromContext)

	ctx := context.Background()
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)
	log.BuildInfo(ctx)

	if err := run(ctx, cfg, log, logLevel); err != nil {
		log.Error(ctx, "startup", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger, logLevel logger.Level) error {
	// --- Submission guard ---
	var (
		submissions guard.Guard
		memGuard    *guard.Memory
		deps        []handlers.Dependency
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis init: %w", err)
		}

		submissions = guardredis.New(rdb, guardredis.WithTTL(cfg.Form.TokenTTL))
		deps = append(deps, handlers.Dependency{Name: "redis", Pinger: healthredis.NewRedisPinger(rdb)})
		log.Info(ctx, "startup", "status", "submission guard on redis", "addr", cfg.Redis.Addr)
	} else {
		memGuard = guard.NewMemory(cfg.Form.TokenTTL)
		submissions = memGuard
		log.Info(ctx, "startup", "status", "submission guard in memory")
	}

	// --- Generation ---
	if err := handlers.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}
	textSvc := generation.NewTextService()
	genHandlers := handlers.NewGenerate(
		textSvc,
		generation.NewImageService(cfg.Generation.ImageURLs),
		log,
	)
	stegoHandler := handlers.NewStego(log)
	sysHandler := handlers.NewSystem(log, handlers.OpenAPI(build), deps...)

	// --- Web form ---
	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	var gen form.TextGenerator = generation.NewLocal(textSvc)
	if cfg.Form.Endpoint != "" {
		gen = client.New(cfg.Form.Endpoint, client.WithTimeout(cfg.Form.Timeout))
		log.Info(ctx, "startup", "status", "report form posts to remote api", "endpoint", cfg.Form.Endpoint)
	}
	pages := web.NewHandler(gen, submissions, renderer, log, web.WithSurfaceErrors(cfg.Form.SurfaceErrors))

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL)
	router, err := http.NewRouter(log, logLevel, http.RouterConfig{
		Verifier:       auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer),
		AuthCookie:     cfg.Auth.Cookie,
		CORSOrigins:    cfg.CORS.Origins,
		Limiter:        limiter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, genHandlers, stegoHandler, sysHandler, pages)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	s := http.NewServer(http.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, router, logger.NewStdLogger(log, logger.LevelError))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		log.Info(ctx, "startup", "status", "server started", "addr", cfg.HTTP.Addr)
		if err := s.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.Cleanup(gctx, time.Minute)
		return nil
	})

	if memGuard != nil {
		g.Go(func() error {
			memGuard.Cleanup(gctx, time.Minute)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutdown", "status", "shutdown started")
		defer log.Info(ctx, "shutdown", "status", "shutdown complete")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "could not stop server gracefully", "error", err)
			_ = s.Close()
		}
		return nil
	})

	return g.Wait()
}
