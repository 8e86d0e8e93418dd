package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/d60-Lab/fanout-engine/config"
	"github.com/d60-Lab/fanout-engine/internal/api"
	"github.com/d60-Lab/fanout-engine/internal/api/handler"
	"github.com/d60-Lab/fanout-engine/internal/cache"
	"github.com/d60-Lab/fanout-engine/internal/delivery"
	"github.com/d60-Lab/fanout-engine/internal/repository"
	"github.com/d60-Lab/fanout-engine/internal/service"
	"github.com/d60-Lab/fanout-engine/pkg/database"
	"github.com/d60-Lab/fanout-engine/pkg/logger"
	"github.com/d60-Lab/fanout-engine/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Server.Mode); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		logger.Error("init tracing", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(ctx) }()

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("init database", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	fanoutRepo := repository.NewFanOutRepository(db)

	followCache := cache.NewFollowCache(followRepo, rdb, cfg.Redis.TTL)
	transport := delivery.NewTransport(cfg.Delivery)
	dispatcher := service.NewDispatcher(fanoutRepo, timelineRepo, followCache, transport)

	clock := service.SystemClock()
	runner := service.NewRunner(fanoutRepo, dispatcher.Dispatch, clock, service.RunnerConfig{
		TryInterval:  cfg.Stator.TryInterval,
		PollInterval: cfg.Stator.PollInterval,
		Workers:      cfg.Stator.Workers,
		Batch:        cfg.Stator.Batch,
		MaxAttempts:  cfg.Stator.MaxAttempts,
	})
	stopRunner := runner.Start()

	replicator := service.NewFanReplicator(fanRepo, 0)
	stopReplicator := replicator.Start(4)

	pruner := service.NewPruner(fanoutRepo, clock, cfg.Stator.PruneAfter)
	cr := cron.New()
	if _, err := cr.AddFunc(cfg.Stator.PruneCron, pruner.Run); err != nil {
		logger.Error("bad prune cron expression", zap.String("expr", cfg.Stator.PruneCron), zap.Error(err))
		os.Exit(1)
	}
	cr.Start()

	relService := service.NewRelationshipService(followRepo, fanRepo, replicator, followCache)
	planner := service.NewPlanner(db, cfg.Server.BaseURL)
	h := handler.New(relService, planner, timelineRepo, fanoutRepo, cfg.Stator.MaxAttempts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg, h),
	}
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cr.Stop()
	_ = stopRunner(shutdownCtx)
	_ = stopReplicator(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
}
