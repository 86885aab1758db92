package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/workbooks-backend/api/routes"
	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/ingress"
	"github.com/angelmondragon/workbooks-backend/internal/transport"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/angelmondragon/workbooks-backend/pkg/env"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
	"github.com/angelmondragon/workbooks-backend/pkg/pubsub"
	"github.com/angelmondragon/workbooks-backend/pkg/redis"
	"github.com/angelmondragon/workbooks-backend/pkg/storagequeue"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Name + "-api",
		Instance:    env.InstanceID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := workbooks.OpenBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open workbook store", err)
		os.Exit(1)
	}
	defer closeResource(logg, "workbook store", backend.Close)

	checks := map[string]db.Pinger{"store": backend.Pinger}

	var idempotency redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer closeResource(logg, "redis", redisClient.Close)
		idempotency = redisClient
		checks["redis"] = redisClient
	}

	publisher, channel, closeChannel, err := openPublisher(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open command channel", err)
		os.Exit(1)
	}
	defer closeResource(logg, "command channel", closeChannel)
	checks["channel"] = channel

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	instanceID := env.InstanceID()
	svc, err := ingress.NewService(ingress.Dependencies{
		Publisher: publisher,
		Source:    cfg.Service.Name + "/" + instanceID,
		Logger:    logg,
		Metrics:   metrics.NewCommandMetrics(reg),
	})
	if err != nil {
		logg.Error(ctx, "failed to create command ingress", err)
		os.Exit(1)
	}

	port := env.Get("PORT", cfg.App.Port)
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"store":     string(backend.Kind),
		"transport": cfg.Eventing.Transport,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Ingress:     svc,
			Workbooks:   backend.Repository,
			Idempotency: idempotency,
			Checks:      checks,
			Gatherer:    reg,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// openPublisher selects the command channel for the configured transport.
func openPublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (commands.Publisher, db.Pinger, func() error, error) {
	switch cfg.Eventing.TransportKind() {
	case enums.TransportAzQueue:
		queue, err := storagequeue.New(cfg.Azure)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := queue.EnsureQueue(ctx); err != nil {
			return nil, nil, nil, err
		}
		publisher, err := transport.NewQueuePublisher(queue)
		if err != nil {
			return nil, nil, nil, err
		}
		return publisher, queue, func() error { return nil }, nil

	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RolePublisher, logg)
		if err != nil {
			return nil, nil, nil, err
		}
		publisher, err := transport.NewPubSubPublisher(client.WorkbookPublisher(), cfg.Eventing.PublishTimeout)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return publisher, client, client.Close, nil
	}
}

func closeResource(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(context.Background(), "resource", name), "error closing resource", err)
	}
}
