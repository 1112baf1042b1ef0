package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/cashdesk/internal/api"
	"github.com/ayo6706/cashdesk/internal/config"
	"github.com/ayo6706/cashdesk/internal/db"
	"github.com/ayo6706/cashdesk/internal/gateway"
	"github.com/ayo6706/cashdesk/internal/idempotency"
	"github.com/ayo6706/cashdesk/internal/legacy"
	"github.com/ayo6706/cashdesk/internal/observability"
	"github.com/ayo6706/cashdesk/internal/realtime"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/ayo6706/cashdesk/internal/worker"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run bootstraps the HTTP server, realtime feed and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	var cache redis.Cmdable
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		logger.Warn("REDIS_URL empty, idempotency replays are served from postgres only")
	}

	store := repository.NewStore(pool)
	locks := service.NewLockService(store, cfg.LockLeaseTTL)
	legacyClient := legacy.NewClient(cfg.LegacyAPIURL, cfg.LegacyAPIToken, cfg.LegacyAPITimeout)
	hub := realtime.NewHub()

	svc := api.Services{
		Users:         store.Queries(),
		Redeems:       service.NewRedeemService(store),
		Payments:      service.NewPaymentService(store, locks, gateway.NewTagSettler(store)),
		Recharges:     service.NewRechargeService(store, locks),
		Assignments:   service.NewAssignmentService(store, locks),
		Locks:         locks,
		Verifications: service.NewVerificationService(store, locks),
		Transfers:     service.NewTransferService(store, locks),
		CompanyTags:   service.NewCompanyTagService(store, legacyClient),
		Hub:           hub,
		Legacy:        legacyClient,
	}

	idemStore := idempotency.NewStore(cache, pool, cfg.IdempotencyTTL)
	router := api.NewRouter(cfg, logger, pool, idemStore, cache, svc)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener := realtime.NewListener(func(ctx context.Context) (*pgx.Conn, error) {
		return db.ConnectListener(ctx, cfg.DatabaseURL)
	}, hub)
	reaper := worker.NewLockReaper(locks).WithInterval(cfg.LockReaperInterval)
	auditor := worker.NewInvariantAuditor(service.NewInvariantService(store)).WithInterval(cfg.InvariantAuditInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error {
		reaper.Start(gctx)
		return nil
	})
	g.Go(func() error {
		auditor.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		reaper.Stop()
		auditor.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
