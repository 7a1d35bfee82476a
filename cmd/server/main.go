package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"exposurescan/internal/platform/config"
	"exposurescan/internal/platform/httpserver"
	"exposurescan/internal/platform/logger"
	platformredis "exposurescan/internal/platform/redis"
	"exposurescan/internal/report"
	"exposurescan/internal/scan"
	"exposurescan/internal/scan/cache"
	scanmetrics "exposurescan/internal/scan/metrics"
	"exposurescan/internal/score"
	"exposurescan/internal/source"
	"exposurescan/internal/source/adapters"
	"exposurescan/internal/taxonomy"
	httptransport "exposurescan/internal/transport/http"
)

// scanService fixes the environment-level scheduler bounds onto every
// request; callers only choose the category filter.
type scanService struct {
	engine *scan.Engine
	bounds config.ScanConfig
}

func (s *scanService) Scan(ctx context.Context, subject source.Subject, cfg scan.Config) (*report.ExposureReport, error) {
	cfg.PerSourceTimeout = s.bounds.PerSourceTimeout
	cfg.ScanDeadline = s.bounds.ScanDeadline
	cfg.MaxParallelism = s.bounds.MaxParallelism
	return s.engine.Scan(ctx, subject, cfg)
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Scan semantics live in the internal packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var evidenceCache cache.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		evidenceCache = cache.NewRedis(redisClient.Client, cfg.Scan.CacheTTL)
		log.Info("evidence cache backed by redis")
	} else {
		evidenceCache = cache.NewInMemory(cfg.Scan.CacheTTL)
		log.Info("evidence cache in memory")
	}

	var reportStore report.Store
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := report.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema migration failed", "error", err)
			os.Exit(1)
		}
		reportStore = store
		log.Info("report store backed by postgres")
	} else {
		reportStore = report.NewInMemoryStore()
		log.Info("report store in memory")
	}

	registry := source.NewRegistry()
	for _, a := range adapters.DefaultSet(cfg.Scan.StubLatency) {
		if err := registry.Register(a); err != nil {
			log.Error("adapter registration failed", "source", a.Src, "error", err)
			os.Exit(1)
		}
	}

	engine := scan.New(
		taxonomy.Seed(),
		registry,
		evidenceCache,
		score.DefaultPolicy(),
		log,
		scanmetrics.New(),
	)

	handler := httptransport.NewHandler(&scanService{engine: engine, bounds: cfg.Scan}, reportStore, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting exposurescan", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
