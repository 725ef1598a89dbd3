package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/examforge/examforge/internal/accounts"
	"github.com/examforge/examforge/internal/app"
	"github.com/examforge/examforge/internal/auth"
	"github.com/examforge/examforge/internal/exams"
	"github.com/examforge/examforge/internal/identity"
	"github.com/examforge/examforge/internal/observability"
	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/platform/cache"
	"github.com/examforge/examforge/internal/platform/db"
	"github.com/examforge/examforge/internal/shared"
	"github.com/examforge/examforge/internal/support"
	"github.com/examforge/examforge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "examforge_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	mailer := &jobs.QueueMailer{Client: jobClient}

	identityRepo := identity.NewRepository(pool)
	identityProvider := identity.NewProvider(identityRepo, mailer, redisClient, cfg.ResetBaseURL)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)

	permissionsRepo := permissions.NewRepository(pool)
	registry := permissions.NewRegistry(permissionsRepo)
	evaluator := permissions.NewEvaluator(permissionsRepo)
	permMiddleware := permissions.Middleware{Logger: logger}

	authService := auth.NewService(logger, identityProvider, accountsService, evaluator, redisClient)

	examsRepo := exams.NewRepository(pool)
	examsService := exams.NewService(examsRepo)

	supportRepo := support.NewRepository(pool)
	supportService := support.NewService(supportRepo)

	metrics := observability.NewMetrics()

	authHandler := auth.NewHandler(logger, authService, accountsService, sessionManager, csrfManager, permMiddleware)
	accountsHandler := accounts.NewHandler(logger, accountsService, permMiddleware)
	permissionsHandler := permissions.NewHandler(logger, registry, evaluator, permMiddleware)
	examsHandler := exams.NewHandler(logger, examsService, permMiddleware)
	supportHandler := support.NewHandler(logger, supportService, accountsService, permMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		AccountsHandler:    accountsHandler,
		PermissionsHandler: permissionsHandler,
		ExamsHandler:       examsHandler,
		SupportHandler:     supportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
