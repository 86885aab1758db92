package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/workbooks-backend/api/controllers"
	"github.com/angelmondragon/workbooks-backend/api/middleware"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
	"github.com/angelmondragon/workbooks-backend/pkg/redis"
)

// Deps carries what the API router needs. Idempotency and Checks entries may be nil.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Ingress     controllers.CommandRunner
	Workbooks   controllers.WorkbookReader
	Idempotency redis.IdempotencyStore
	Checks      map[string]db.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	mountOperational(r, cfg, logg, deps.Checks, deps.Gatherer)

	r.Route("/workbook", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Eventing.RequestIdempotencyTTL, logg))

		r.Post("/", controllers.CreateWorkbook(deps.Ingress, logg))
		r.Get("/", controllers.ListWorkbooks(deps.Workbooks, logg))
		r.Get("/{id}", controllers.GetWorkbook(deps.Workbooks, logg))
	})

	return r
}

// WorkerDeps carries what the worker's push endpoint needs.
type WorkerDeps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Handler     controllers.MessageHandler
	Checks      map[string]db.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewWorkerRouter(deps WorkerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.Metrics(deps.HTTPMetrics),
	)

	mountOperational(r, deps.Config, deps.Logger, deps.Checks, deps.Gatherer)

	if deps.Handler != nil {
		r.Post("/pubsub/push", controllers.PubSubPush(deps.Handler, deps.Logger))
	}
	return r
}

func mountOperational(r chi.Router, cfg *config.Config, logg *logger.Logger, checks map[string]db.Pinger, gatherer prometheus.Gatherer) {
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", controllers.Metrics(gatherer))
	}
}
