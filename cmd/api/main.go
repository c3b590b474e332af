package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devflowhub/engine/internal/api"
	"github.com/devflowhub/engine/internal/api/handlers"
	mw "github.com/devflowhub/engine/internal/api/middleware"
	"github.com/devflowhub/engine/internal/notify"
	"github.com/devflowhub/engine/internal/queue/tasks"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/internal/services"
	"github.com/devflowhub/engine/pkg/config"
	"github.com/devflowhub/engine/pkg/database"
	"github.com/devflowhub/engine/pkg/logger"
)

const insecureDevSecret = "change-me-in-production-please"

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting devflowhub engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer queue.Close()

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		if !cfg.IsDevelopment() {
			log.Fatal("JWT_SECRET is required outside development")
		}
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte(insecureDevSecret)
	}

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.NotifyFrom)
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	onboardingRepo := repository.NewOnboardingRepository(db)
	usageRepo := repository.NewUsageEventRepository(db)

	authSvc := services.NewAuthService(userRepo, jwtSecret)
	onboardingSvc := services.NewOnboardingService(onboardingRepo, userRepo, notifier)
	projectSvc := services.NewProjectService(projectRepo, onboardingSvc)
	usageSvc := services.NewUsageService(usageRepo, tasks.NewUsageEnqueuer(queue, cfg.UsageQueue), onboardingSvc)

	limiter := mw.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.GC(ctx, time.Minute, 10*time.Minute)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:  jwtSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: limiter,
		HealthHandler: handlers.NewHealthHandler(
			handlers.Check{Name: "postgres", Ping: func(ctx context.Context) error { return database.Ping(ctx, db) }},
			handlers.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		),
		AuthHandler:       handlers.NewAuthHandler(authSvc),
		ToolsHandler:      handlers.NewToolsHandler(),
		ProjectsHandler:   handlers.NewProjectsHandler(projectSvc),
		OnboardingHandler: handlers.NewOnboardingHandler(onboardingSvc),
		UsageHandler:      handlers.NewUsageHandler(usageSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
	if err := usageSvc.Drain(shutdownCtx); err != nil {
		log.Warn("usage deliveries still in flight at shutdown", zap.Error(err))
	}
	log.Info("server exited")
}
