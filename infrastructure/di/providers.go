// Package di assembles the application object graph.
package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/infrastructure/config"
	"entstore/infrastructure/embedding"
	"entstore/infrastructure/persistence/memory"
	"entstore/interfaces/http/rest"
	"entstore/interfaces/http/rest/handlers"
	"entstore/pkg/concurrency"
	"entstore/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Stores  *memory.Registry
	Router  http.Handler
	Server  *http.Server
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideMetrics creates the metrics bundle
func ProvideMetrics() *observability.Metrics {
	return observability.New("entstore")
}

// ProvideEmbedder creates the embedding provider. The deterministic
// local backend is decorated with the configured retry and circuit
// breaker behavior.
func ProvideEmbedder(cfg *config.Config, logger *zap.Logger) ports.EmbeddingProvider {
	backend := embedding.NewMockProvider(cfg.Embedding.Dimensions)
	resCfg := embedding.DefaultResilientConfig()
	resCfg.MaxRetries = uint(cfg.Embedding.MaxRetries)
	resCfg.InitialInterval = cfg.Embedding.BaseBackoff
	resCfg.MaxInterval = cfg.Embedding.MaxBackoff
	return embedding.NewResilientProvider(backend, resCfg, logger)
}

// maxAgeRetention discards events older than the configured age.
type maxAgeRetention struct {
	maxAgeSeconds float64
}

func (p maxAgeRetention) Retain(ctx context.Context, index int, ageSeconds float64) bool {
	return ageSeconds <= p.maxAgeSeconds
}

// ProvideRetention creates the event retention policy. Zero retention
// keeps the log forever.
func ProvideRetention(cfg *config.Config) ports.RetentionPolicy {
	if cfg.Store.EventRetention <= 0 {
		return nil
	}
	return maxAgeRetention{maxAgeSeconds: float64(cfg.Store.EventRetention)}
}

// ProvideStoreRegistry creates the per-namespace provider registry.
func ProvideStoreRegistry(
	cfg *config.Config,
	embedder ports.EmbeddingProvider,
	retention ports.RetentionPolicy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *memory.Registry {
	return memory.NewRegistry(func(namespace string) *memory.Provider {
		return memory.New(memory.Options{
			Namespace: namespace,
			Embedder:  embedder,
			Retention: retention,
			Limiter:   concurrency.New(cfg.Store.LimiterCapacity),
			Logger:    logger.With(zap.String("namespace", namespace)),
			Metrics:   metrics,
		})
	})
}

// ProvideRouter builds the HTTP handler over the store registry.
func ProvideRouter(
	cfg *config.Config,
	stores *memory.Registry,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	resolve := handlers.ProviderResolver(func(namespace string) (ports.Provider, error) {
		p, err := stores.Get(namespace)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	router := rest.NewRouter(cfg, resolve, stores.Namespaces, metrics.Registry, logger)
	return router.Setup()
}

// ProvideServer creates the HTTP server
func ProvideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
