package embedding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"entstore/application/ports"
	pkgerrors "entstore/pkg/errors"
)

// ResilientConfig tunes the retry and circuit breaker behavior of the
// resilient decorator.
type ResilientConfig struct {
	MaxRetries      uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerTimeout  time.Duration
	FailureRatio    float64
	MinRequests     uint32
}

// DefaultResilientConfig returns the production defaults.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		BreakerTimeout:  30 * time.Second,
		FailureRatio:    0.6,
		MinRequests:     5,
	}
}

// ResilientProvider wraps an injected embedding backend with retries
// and a circuit breaker, falling back to the deterministic mock when
// the backend stays unavailable. Embeddings therefore always succeed;
// backend trouble degrades quality, not availability.
type ResilientProvider struct {
	backend  ports.EmbeddingProvider
	fallback ports.EmbeddingProvider
	breaker  *gobreaker.CircuitBreaker
	cfg      ResilientConfig
	logger   *zap.Logger
}

// NewResilientProvider decorates backend. A nil backend means every
// call goes straight to the mock.
func NewResilientProvider(backend ports.EmbeddingProvider, cfg ResilientConfig, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "embedding-backend",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &ResilientProvider{
		backend:  backend,
		fallback: NewMockProvider(DefaultDimensions),
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger,
	}
}

// EmbedTexts calls the backend through the breaker with exponential
// backoff. On exhausted retries or an open breaker it logs and falls
// back to the mock generator.
func (p *ResilientProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if p.backend == nil {
		return p.fallback.EmbedTexts(ctx, texts)
	}

	vectors, err := p.embedWithRetry(ctx, texts)
	if err == nil {
		return vectors, nil
	}

	appErr := pkgerrors.NewEmbeddingBackendError(err)
	p.logger.Warn("embedding backend failed, using mock fallback",
		zap.Int("texts", len(texts)),
		zap.Error(appErr))
	return p.fallback.EmbedTexts(ctx, texts)
}

func (p *ResilientProvider) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.InitialInterval
	eb.MaxInterval = p.cfg.MaxInterval
	policy := backoff.WithMaxRetries(backoff.WithContext(eb, ctx), uint64(p.cfg.MaxRetries))

	operation := func() error {
		result, err := p.breaker.Execute(func() (interface{}, error) {
			return p.backend.EmbedTexts(ctx, texts)
		})
		if err != nil {
			// An open breaker will not recover within this retry loop.
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		vectors = result.([][]float64)
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return vectors, nil
}
