package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/motospec/backend/config"
	"github.com/motospec/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Catalog:    config.CatalogConfig{Type: "memory"},
		Similarity: config.SimilarityConfig{TopN: 5, NearEqualTol: 0.01, QuerySnapping: true},
		Cache:      config.CacheConfig{Type: "memory", TTL: time.Hour},
	}
}

func TestNew(t *testing.T) {
	t.Run("memory stack without a fetcher", func(t *testing.T) {
		app, err := New(baseConfig(), zerolog.Nop())
		require.NoError(t, err)
		defer app.Close()

		_, err = app.Service.FetchRecord(context.Background(), &domain.FetchRequest{Model: "Duke 390"})
		assert.True(t, errors.Is(err, domain.ErrFetcherDisabled))

		assert.Equal(t, 5, app.Service.BatchOptions().TopN)
		assert.True(t, app.Service.QueryOptions().Snapping)
	})

	t.Run("sqlite catalog", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Catalog = config.CatalogConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "m.db"), Table: "models"}

		app, err := New(cfg, zerolog.Nop())
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, app.Service.AcceptRecord(ctx, domain.Record{domain.FieldModels: "Duke 390", "Displacement (cc)": 373.0}))
		models, _, err := app.Service.SimilarityMatrix(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Duke 390"}, models)

		assert.NoError(t, app.Close())
		assert.NoError(t, app.Close())
	})

	t.Run("unknown catalog type", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Catalog.Type = "postgres"
		_, err := New(cfg, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("unknown cache type", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Cache.Type = "memcached"
		_, err := New(cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestNewFetcher(t *testing.T) {
	assert.Nil(t, NewFetcher(config.GeminiConfig{}, 10, zerolog.Nop()))
	assert.NotNil(t, NewFetcher(config.GeminiConfig{APIKey: "key", BaseURL: "http://localhost"}, 10, zerolog.Nop()))
}

func TestNewCatalogStore_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Model.csv")
	store, closeFn, err := NewCatalogStore(config.CatalogConfig{Type: "csv", Path: path})
	require.NoError(t, err)
	defer closeFn()

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.FieldOrder, c.Columns)
}
