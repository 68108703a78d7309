package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cadenza-hq/cadenza/internal/adjustments"
	"github.com/cadenza-hq/cadenza/internal/auth"
	"github.com/cadenza-hq/cadenza/internal/observability"
	"github.com/cadenza-hq/cadenza/internal/rbac"
	"github.com/cadenza-hq/cadenza/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthRepo           auth.Repository
	RBACMiddleware     rbac.Middleware
	AdjustmentsHandler *adjustments.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Cadenza defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.AuthRepo, params.Logger))
		r.Route("/orgs/{orgID}", func(r chi.Router) {
			params.AdjustmentsHandler.MountRoutes(r, params.RBACMiddleware)
		})
	})

	return r
}
