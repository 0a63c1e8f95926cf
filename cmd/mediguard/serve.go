package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/mediguard/internal/config"
	"github.com/jwalitptl/mediguard/internal/email"
	"github.com/jwalitptl/mediguard/internal/handler/dashboard"
	"github.com/jwalitptl/mediguard/internal/handler/health"
	"github.com/jwalitptl/mediguard/internal/handler/medication"
	"github.com/jwalitptl/mediguard/internal/handler/prometheus"
	"github.com/jwalitptl/mediguard/internal/middleware"
	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository/file"
	"github.com/jwalitptl/mediguard/internal/router"
	"github.com/jwalitptl/mediguard/internal/service/catalog"
	"github.com/jwalitptl/mediguard/internal/service/compliance"
	"github.com/jwalitptl/mediguard/internal/service/notification"
	"github.com/jwalitptl/mediguard/internal/worker"
	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/messaging"
	"github.com/jwalitptl/mediguard/pkg/messaging/memory"
	"github.com/jwalitptl/mediguard/pkg/messaging/redis"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

const metricsNamespace = "mediguard"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	appLog := logger.NewLogger(&logger.Config{Level: level})
	zerolog.SetGlobalLevel(level)
	log.Logger = appLog.ZL
	return appLog
}

func serve(ctx context.Context, cfg *config.Config) error {
	appLog := newLogger(cfg)
	m, registry := metrics.New(metricsNamespace)

	repo := file.NewCatalogRepository(cfg.Catalog.Path)
	catalogSvc := catalog.NewService(repo, appLog, m)
	if err := catalogSvc.Load(ctx); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	brokers := messaging.Fanout{memory.NewBroker(64)}
	checks := map[string]health.Check{}
	if cfg.Redis.Enabled {
		rb, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLog.ZL)
		if err != nil {
			return err
		}
		brokers = append(brokers, rb)
		checks["redis"] = rb.Ping
	}
	defer brokers.Close()

	var mailer email.Service
	if cfg.Email.Enabled {
		mailer = email.NewService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
		})
	}
	notifier := notification.NewService(notification.Config{
		Channel:      cfg.Redis.Channel,
		EmailMinTier: model.Tier(cfg.Email.MinTier),
	}, brokers, mailer, appLog, m)

	verifier := compliance.NewRandomVerifier(cfg.Verifier.TakeProbability, cfg.Verifier.SensorReliability, cfg.Verifier.Seed)
	engine := compliance.NewEngine(catalogSvc, verifier,
		compliance.WithNotifier(notifier),
		compliance.WithMetrics(m),
		compliance.WithLogger(appLog),
	)
	if cfg.Seed.Enabled {
		history := compliance.GenerateHistory(catalogSvc.List(), engine.Now(), compliance.SeedConfig{
			Days:        cfg.Seed.Days,
			TakenRatio:  cfg.Seed.TakenRatio,
			MissedToday: cfg.Seed.MissedToday,
		})
		engine.SeedHistory(history)
		st := engine.State()
		appLog.Info("seeded compliance history",
			"events", len(history),
			"alerts", len(st.Alerts),
			"status", string(st.Status),
		)
	}
	if next, ok := engine.RecomputeNextDose(); ok {
		appLog.Info("next dose scheduled", "at", next.Format(time.RFC3339))
	}

	scheduler := worker.NewScheduler(engine, worker.SchedulerConfig{
		PollInterval: cfg.Scheduler.PollInterval,
		Cooldown:     cfg.Scheduler.Cooldown,
	}, appLog, m)
	rollover, err := worker.NewRollover(engine, cfg.Scheduler.RolloverSpec, time.Local, appLog, m)
	if err != nil {
		return err
	}

	r, err := router.NewRouter(
		health.NewHandler(checks),
		prometheus.New(registry, metricsNamespace),
		router.RouterConfig{
			Mode:             gin.ReleaseMode,
			MetricsPath:      cfg.Metrics.Path,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				RPS:   cfg.RateLimit.RPS,
				Burst: cfg.RateLimit.Burst,
				TTL:   cfg.RateLimit.TTL,
			},
		},
		dashboard.NewHandler(engine, catalogSvc, brokers, cfg.Redis.Channel),
		medication.NewHandler(catalogSvc, engine),
	)
	if err != nil {
		return err
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// request contexts end with ctx so open alert streams close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go scheduler.Start(ctx)
	rollover.Start()

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting server", "addr", srv.Addr, "catalog", repo.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}
	appLog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-rollover.Stop().Done()
	notifier.Wait()

	appLog.Info("server exited properly")
	return nil
}
