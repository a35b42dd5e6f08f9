package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dwhmon/internal/audit"
	"dwhmon/internal/extract"
	"dwhmon/internal/jwtauth"
	"dwhmon/internal/platform/config"
	"dwhmon/internal/platform/httpserver"
	"dwhmon/internal/platform/logger"
	"dwhmon/internal/platform/metrics"
	platformredis "dwhmon/internal/platform/redis"
	"dwhmon/internal/report"
	"dwhmon/internal/report/handler"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg, err := report.LoadConfig(cfg.RulesPath)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	appMetrics := metrics.New()

	opts := []report.Option{
		report.WithLogger(log),
		report.WithMetrics(appMetrics),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, report.WithCache(report.NewRedisCache(redisClient, cfg.CacheTTL, log)))
		log.Info("report cache enabled", "ttl", cfg.CacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, report.WithAuditor(publisher))
		log.Info("audit publishing enabled", "topic", cfg.Kafka.Topic)
	}

	svc, err := report.New(store, runCfg, opts...)
	if err != nil {
		return err
	}

	jwt := jwtauth.NewService(cfg.Server.JWTSigningKey, "dwhmon")

	router := chi.NewRouter()
	handler.New(svc, log, jwt).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(redisClient))

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting dwhmon", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// newStore connects to the warehouse, or serves a seeded in-memory snapshot
// when no DSN is configured so the dashboard works in development.
func newStore(cfg config.Config, log *slog.Logger) (extract.Store, func(), error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("no warehouse DSN configured, serving seeded development data")
		return extract.NewMemory(extract.SeedSnapshot(time.Now())), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return extract.NewPostgres(db), func() { db.Close() }, nil
}

func healthz(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
