// Package rest wires the HTTP surface of the entity store.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"entstore/infrastructure/config"
	"entstore/interfaces/http/rest/handlers"
	"entstore/interfaces/http/rest/middleware"
	"entstore/pkg/ratelimit"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg        *config.Config
	resolve    handlers.ProviderResolver
	namespaces func() []string
	registry   *prometheus.Registry
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	resolve handlers.ProviderResolver,
	namespaces func() []string,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		resolve:    resolve,
		namespaces: namespaces,
		registry:   registry,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.RateLimit(ratelimit.NewSlidingWindowLimiter(600, time.Minute)))

	if rt.cfg.Server.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.NamespaceHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health and metrics
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.Server.EnableMetrics && rt.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Namespace(rt.cfg.Store.DefaultNamespace))

		entityHandler := handlers.NewEntityHandler(rt.resolve, rt.logger)
		searchHandler := handlers.NewSearchHandler(rt.resolve, rt.logger)
		relationHandler := handlers.NewRelationHandler(rt.resolve, rt.logger)
		artifactHandler := handlers.NewArtifactHandler(rt.resolve, rt.logger)

		r.Route("/entities/{type}", func(r chi.Router) {
			r.Post("/", entityHandler.Create)
			r.Get("/", entityHandler.List)
			r.Post("/batch", entityHandler.CreateMany)
			r.Patch("/batch", entityHandler.UpdateMany)
			r.Post("/batch-delete", entityHandler.DeleteMany)

			r.Get("/search", searchHandler.Search)
			r.Get("/semantic-search", searchHandler.SemanticSearch)
			r.Get("/hybrid-search", searchHandler.HybridSearch)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", entityHandler.Get)
				r.Patch("/", entityHandler.Update)
				r.Delete("/", entityHandler.Delete)
				r.Get("/related/{relation}", relationHandler.Related)

				r.Get("/artifacts", artifactHandler.List)
				r.Delete("/artifacts", artifactHandler.Delete)
				r.Get("/artifacts/{kind}", artifactHandler.Get)
				r.Put("/artifacts/{kind}", artifactHandler.Set)
			})
		})

		r.Post("/batch", entityHandler.PerformMany)
		r.Post("/search/union", searchHandler.UnionSearch)

		r.Post("/relations", relationHandler.Relate)
		r.Post("/relations/delete", relationHandler.Unrelate)

		eventHandler := handlers.NewEventHandler(rt.resolve, rt.logger)
		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.Emit)
			r.Get("/", eventHandler.List)
			r.Post("/replay", eventHandler.Replay)
		})

		actionHandler := handlers.NewActionHandler(rt.resolve, rt.logger)
		r.Route("/actions", func(r chi.Router) {
			r.Post("/", actionHandler.Create)
			r.Get("/", actionHandler.List)
			r.Get("/{id}", actionHandler.Get)
			r.Patch("/{id}", actionHandler.Update)
			r.Post("/{id}/retry", actionHandler.Retry)
			r.Post("/{id}/cancel", actionHandler.Cancel)
		})

		schemaHandler := handlers.NewSchemaHandler(rt.logger)
		r.Post("/schema/diff", schemaHandler.Diff)
		r.Post("/schema/graph", schemaHandler.Graph)

		adminHandler := handlers.NewAdminHandler(rt.resolve, rt.namespaces, rt.logger)
		r.Get("/stats", adminHandler.Stats)
		r.Get("/namespaces", adminHandler.Namespaces)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
