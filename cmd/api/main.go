package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/coursehub/internal/accounts"
	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/cache"
	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/courses"
	"github.com/geocoder89/coursehub/internal/db"
	"github.com/geocoder89/coursehub/internal/enrollment"
	httpx "github.com/geocoder89/coursehub/internal/http"
	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/geocoder89/coursehub/internal/repo/postgres"
	"github.com/geocoder89/coursehub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the config set up
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env, cfg.ServiceName)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DBURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	health := map[string]handlers.Pinger{"postgres": pool}

	var courseCache cache.Store
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		rc := cache.NewRedis(rdb, cfg.ServiceName+":", cfg.CacheTTL)
		courseCache = rc
		health["redis"] = rc
	} else {
		courseCache = cache.NewMemory(cfg.CacheTTL)
	}

	identities := postgres.NewIdentitiesRepo(pool, prom)
	courseStore := courses.NewCachedStore(postgres.NewCoursesRepo(pool, prom), courseCache, log)
	enrollments := postgres.NewEnrollmentsRepo(pool, prom)

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	accountSvc := accounts.NewService(identities, security.NewHasher(), tokens)
	courseSvc := courses.NewService(courseStore)
	coord := enrollment.NewCoordinator(identities, courseStore, enrollments,
		enrollment.WithMetrics(prom),
		enrollment.WithLogger(log),
	)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := accountSvc.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			log.Info("admin account created", "email", cfg.AdminEmail)
		}
	} else if n, err := identities.CountAdmins(ctx); err == nil && n == 0 {
		log.Warn("no admin account exists; set ADMIN_EMAIL and ADMIN_PASSWORD to seed one")
	}

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		ServiceName:        cfg.ServiceName,
		Prom:               prom,
		Gatherer:           reg,
		Tokens:             tokens,
		Accounts:           accountSvc,
		Courses:            courseSvc,
		Enrollments:        coord,
		Health:             health,
		ShuttingDown:       shuttingDown.Load,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")
	shuttingDown.Store(true)

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
