package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/go-katalog/internal/config"
	"github.com/diewo77/go-katalog/internal/db"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/mailer"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	configFlag      = flag.String("config", "", "Optional YAML config file")
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.App.Environment,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}

	migrateURL := ""
	if cfg.App.Migrations {
		migrateURL = cfg.Database.MigrationURL()
	}
	if *migrateOnlyFlag {
		if err := db.Migrate(conn, migrateURL); err != nil {
			return err
		}
		zl.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		n, err := db.Seed(ctx, conn)
		if err != nil {
			return err
		}
		zl.Info("seeding completed", zap.Int("categories_created", n))
		return nil
	}

	if err := db.Migrate(conn, migrateURL); err != nil {
		return err
	}
	if cfg.App.Seed {
		if n, err := db.Seed(ctx, conn); err != nil {
			return err
		} else if n > 0 {
			zl.Info("default categories created", zap.Int("count", n))
		}
	}

	tel, err := telemetry.New(ctx, cfg.Otel, cfg.App)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			zl.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	rdb := connectRedis(ctx, cfg.Redis, zl)
	if rdb != nil {
		defer rdb.Close()
	}

	app := NewApp(Deps{
		Config:   cfg,
		DB:       conn,
		Redis:    rdb,
		Log:      zl,
		Registry: reg,
		Metrics:  m,
		Tracer:   tel.Tracer,
		Mailer:   newMailer(cfg.Mail),
	})

	if err := app.Preload(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	outcome, err := app.Accounts().EnsureAdmin(logger.WithContext(ctx, zl), cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	switch outcome {
	case services.AdminCreated:
		zl.Info("admin user created", zap.String("email", cfg.Admin.Email))
	case services.AdminUpdated:
		zl.Info("admin password updated", zap.String("email", cfg.Admin.Email))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zl.Info("server stopped gracefully")
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable;
// caches and rate limits then stay in process.
func connectRedis(ctx context.Context, rc config.RedisConfig, zl *zap.Logger) *redis.Client {
	if rc.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(rc.URL)
	if err != nil {
		zl.Warn("invalid REDIS_URL, continuing without redis", zap.Error(err))
		return nil
	}
	if rc.PoolSize > 0 {
		opts.PoolSize = rc.PoolSize
	}
	opts.MinIdleConns = rc.MinIdleConns
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Warn("redis unreachable, continuing without redis", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	zl.Info("redis connected", zap.String("addr", opts.Addr))
	return rdb
}

func newMailer(mc config.MailConfig) mailer.Mailer {
	if mc.Host == "" {
		return mailer.LogMailer{}
	}
	return mailer.NewSMTP(mc.Host, mc.Port, mc.Username, mc.Password, mc.From)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
}
