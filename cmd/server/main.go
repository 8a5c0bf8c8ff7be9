package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"leasehold/internal/lease/activity"
	leasehandler "leasehold/internal/lease/handler"
	leasemetrics "leasehold/internal/lease/metrics"
	"leasehold/internal/lease/scheduler"
	"leasehold/internal/lease/service"
	"leasehold/internal/platform/config"
	"leasehold/internal/platform/httpserver"
	"leasehold/internal/platform/kafka/consumer"
	"leasehold/internal/platform/logger"
	"leasehold/internal/platform/metrics"
	"leasehold/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/lease packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("leasehold stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	leaseMetrics := leasemetrics.New()
	httpMetrics := metrics.New()

	if err := seedContent(ctx, cfg, deps, log); err != nil {
		return err
	}

	leases, err := service.New(deps.repo,
		service.WithLogger(log),
		service.WithMetrics(leaseMetrics),
		service.WithAuditPublisher(deps.audit),
		service.WithGraceDaysOverride(cfg.Scheduler.GraceDaysOverride),
	)
	if err != nil {
		return fmt.Errorf("build lease service: %w", err)
	}

	schedulerOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithMetrics(leaseMetrics),
	}
	if deps.locker != nil {
		schedulerOpts = append(schedulerOpts, scheduler.WithLocker(deps.locker))
	}
	sweeper, err := scheduler.New(deps.repo, leases, scheduler.Config{
		InitialDelay:    cfg.Scheduler.InitialDelay,
		Interval:        cfg.Scheduler.Interval,
		ShutdownTimeout: cfg.Scheduler.ShutdownTimeout,
		LockTTL:         cfg.Scheduler.LockTTL,
	}, schedulerOpts...)
	if err != nil {
		return fmt.Errorf("build eviction scheduler: %w", err)
	}

	trackerOpts := []activity.Option{
		activity.WithLogger(log),
		activity.WithMetrics(leaseMetrics),
		activity.WithMaxInFlight(cfg.Activity.MaxInFlight),
	}
	if deps.throttle != nil {
		trackerOpts = append(trackerOpts, activity.WithThrottle(deps.throttle, cfg.Activity.ThrottleWindow))
	}
	tracker, err := activity.New(deps.repo, deps.resolver, trackerOpts...)
	if err != nil {
		return fmt.Errorf("build activity tracker: %w", err)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Health(r.Context()); err != nil {
			httputil.WriteError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())
	leasehandler.New(leases, log, httpMetrics, leasehandler.WithTimeout(cfg.Server.RequestTimeout)).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "starting leasehold", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Scheduler.Enabled {
		if err := sweeper.Start(gctx); err != nil {
			return fmt.Errorf("start eviction scheduler: %w", err)
		}
	}

	if deps.relay != nil {
		g.Go(func() error {
			return deps.relay.Run(gctx)
		})
	}

	var feed *consumer.Consumer
	if cfg.Kafka.Enabled() {
		routes := consumer.NewRouter(log, nil)
		routes.Register(cfg.Kafka.AreaEntryTopic, tracker)
		feed, err = consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			Group:   cfg.Kafka.ConsumerGroup,
			Topics:  routes.Topics(),
		}, routes, consumer.WithLogger(log))
		if err != nil {
			return fmt.Errorf("build area-entry consumer: %w", err)
		}
		g.Go(func() error {
			return feed.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down leasehold")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		sweeper.Stop(shutdownCtx)
		if feed != nil {
			feed.Close()
		}
		tracker.Wait()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
