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
	"go.uber.org/multierr"

	"github.com/angelmondragon/workbooks-backend/api/routes"
	"github.com/angelmondragon/workbooks-backend/internal/consumer"
	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/internal/processor"
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

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Name + "-worker",
		Instance:    env.InstanceID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	runErr := run(ctx, cfg, logg, &closers)

	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i]())
	}
	if errs != nil {
		logg.Error(context.Background(), "error releasing worker resources", errs)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "worker exited with error", runErr)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, closers *[]func() error) error {
	backend, err := workbooks.OpenBackend(ctx, cfg, logg)
	if err != nil {
		return err
	}
	*closers = append(*closers, backend.Close)

	checks := map[string]db.Pinger{"store": backend.Pinger}

	var claims processor.Claims
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		*closers = append(*closers, redisClient.Close)
		claims = redisClient
		checks["redis"] = redisClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	instanceID := env.InstanceID()
	handler, err := consumer.NewHandler(consumer.Options{
		Parser:     envelope.NewParser(cfg.Eventing.SchemaVersions...),
		Store:      backend.Repository,
		Claims:     claims,
		ClaimTTL:   cfg.Eventing.ClaimTTL,
		InstanceID: instanceID,
		Logger:     logg,
		Metrics:    metrics.NewCommandMetrics(reg),
	})
	if err != nil {
		return err
	}

	var loop runner
	switch cfg.Eventing.TransportKind() {
	case enums.TransportAzQueue:
		queue, err := storagequeue.New(cfg.Azure)
		if err != nil {
			return err
		}
		if err := queue.EnsureQueue(ctx); err != nil {
			return err
		}
		checks["queue"] = queue
		loop, err = consumer.NewQueueConsumer(handler, queue, logg, consumer.QueueOptions{
			PollInterval:      cfg.Azure.PollInterval,
			VisibilityTimeout: cfg.Azure.VisibilityTimeout,
		})
		if err != nil {
			return err
		}
	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
		if err != nil {
			return err
		}
		*closers = append(*closers, client.Close)
		checks["pubsub"] = client
		loop, err = consumer.NewPubSubConsumer(handler, client.WorkbookSubscription(), cfg.PubSub.WorkbookTopic)
		if err != nil {
			return err
		}
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewWorkerRouter(routes.WorkerDeps{
			Config:      cfg,
			Logger:      logg,
			Handler:     handler,
			Checks:      checks,
			Gatherer:    reg,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	svc, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		Consumer: loop,
		Server:   server,
		Checks:   checks,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"store":     string(backend.Kind),
		"transport": cfg.Eventing.Transport,
	})
	logg.Info(ctx, "starting worker")
	return svc.Run(ctx)
}
