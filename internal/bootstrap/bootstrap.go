// Package bootstrap wires configuration into the similarity service for the server
// and the CLI.
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/motospec/backend/config"
	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/infrastructure/cache"
	"github.com/motospec/backend/internal/infrastructure/catalog"
	"github.com/motospec/backend/internal/infrastructure/gemini"
	"github.com/motospec/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// App holds the wired service and the resources it owns.
type App struct {
	Service *usecase.SimilarityService
	closers []func() error
}

// New builds the catalog store, fetch cache and record fetcher named by cfg and
// the similarity service over them.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{}

	store, closeStore, err := NewCatalogStore(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	fetchCache, closeCache, err := NewCache(cfg.Cache)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeCache)

	fetcher := NewFetcher(cfg.Gemini, cfg.RateLimit.Gemini, logger)
	if fetcher == nil {
		logger.Warn().Msg("Gemini API key not configured, record fetching disabled")
	}

	logger.Info().
		Str("catalog", cfg.Catalog.Type).
		Str("catalog_path", cfg.Catalog.Path).
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Int("top_n", cfg.Similarity.TopN).
		Float64("near_equal_tol", cfg.Similarity.NearEqualTol).
		Bool("batch_snapping", cfg.Similarity.BatchSnapping).
		Bool("query_snapping", cfg.Similarity.QuerySnapping).
		Msg("similarity service configured")

	app.Service = usecase.NewSimilarityService(store, fetchCache, fetcher, logger, usecase.SimilarityServiceConfig{
		Spec:          usecase.DefaultFeatureSpec(),
		TopN:          cfg.Similarity.TopN,
		NearEqualTol:  cfg.Similarity.NearEqualTol,
		BatchSnapping: cfg.Similarity.BatchSnapping,
		QuerySnapping: cfg.Similarity.QuerySnapping,
		FetchCacheTTL: cfg.Cache.TTL,
	})
	return app, nil
}

// Close releases every resource the app opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewCatalogStore opens the catalog store selected by cfg.Type.
func NewCatalogStore(cfg config.CatalogConfig) (domain.CatalogStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "memory":
		return catalog.NewMemoryStore(nil), noop, nil
	case "csv":
		return catalog.NewCSVStore(cfg.Path), noop, nil
	case "sqlite":
		store, err := catalog.NewSQLiteStore(cfg.Path, cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog type %q", cfg.Type)
	}
}

// NewCache opens the fetch cache selected by cfg.Type.
func NewCache(cfg config.CacheConfig) (domain.CacheRepository, func() error, error) {
	switch cfg.Type {
	case "memory":
		c := cache.NewMemoryCache(time.Minute)
		return c, c.Close, nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// NewFetcher returns a Gemini-backed fetcher, or nil when no API key is configured.
func NewFetcher(cfg config.GeminiConfig, requestsPerMinute int, logger zerolog.Logger) domain.RecordFetcher {
	if cfg.APIKey == "" {
		return nil
	}
	return gemini.NewClient(gemini.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: requestsPerMinute,
	}, logger.With().Str("component", "gemini").Logger())
}
