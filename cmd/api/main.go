package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vetvoice-platform/internal/audit"
	"vetvoice-platform/internal/auth"
	"vetvoice-platform/internal/calls"
	"vetvoice-platform/internal/config"
	"vetvoice-platform/internal/reporting"
	"vetvoice-platform/internal/routing"
	"vetvoice-platform/internal/scheduler"
	"vetvoice-platform/internal/tools"
	"vetvoice-platform/internal/voice"
	"vetvoice-platform/internal/webhook"
	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/metrics"
	"vetvoice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "api")
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	mx := metrics.New("vetvoice", nil)

	// Outbound voice: the provider client behind the dispatch throttle.
	throttle := voice.NewThrottle(cfg.Voice.MaxConcurrent, cfg.Voice.DispatchDelay)
	throttle.OnDepth = mx.ThrottleDepth
	voiceClient := voice.NewClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, throttle)

	callRepo := calls.NewRepo(db)
	updater := calls.NewUpdater(callRepo, callRepo)

	audits := audit.NewService(audit.NewPostgresRepo(db))

	// Durable delayed execution.
	jobRepo := scheduler.NewPostgresRepo(db)
	queue := scheduler.NewQueueClient(cfg.Queue.PublishURL, cfg.Queue.Token)
	schedSvc := scheduler.NewService(jobRepo, queue, cfg.Voice.WebhookBaseURL, cfg.Scheduler.ImmediateSecret, mx)
	// Email delivery is owned by the dashboard backend; no sender is wired
	// here, so an email job reaching this process fails loudly.
	executor := scheduler.NewExecutor(jobRepo, callRepo, voiceClient, nil, rdb,
		cfg.Scheduler.ImmediateSecret, cfg.Queue.SigningKey, mx)

	sweeper := scheduler.NewSweeper(jobRepo, log, cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepGrace)
	sweeper.Start()
	defer sweeper.Stop()

	// Inbound routing: silent overrides first, then number mappings.
	engine := routing.NewRoutingEngine(routing.NewSQLMappings(db), nil)
	engine.Overrides = routing.NewAdminOverrideEngine(
		routing.NewSQLOverrides(db), routing.AuditAdapter{Audit: audits})

	registry := tools.NewRegistry()
	err = tools.RegisterDefaults(registry, tools.Deps{
		Calls:     callRepo,
		Cases:     callRepo,
		FollowUps: followUpAdapter{svc: schedSvc},
	})
	if err != nil {
		log.Error("tool registration failed", "err", err)
		os.Exit(1)
	}

	dispatcher := webhook.NewDispatcher(tools.NewExecutor(registry, mx), updater, mx).
		WithAssistantResolver(assistantResolver(engine))

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, apiDeps{
		authMW:    auth.RequireAccessToken(authManager),
		webhooks:  webhook.Handler{Dispatcher: dispatcher},
		executor:  executor,
		schedules: scheduler.NewHandlers(schedSvc, audits),
		reports:   reporting.NewService(callRepo),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
