package domain

import (
	"context"
	"time"
)

// CatalogStore is the persistent tabular store. Load returns a full snapshot and
// Save rewrites the whole table; there is no incremental write.
type CatalogStore interface {
	Load(ctx context.Context) (*Catalog, error)
	Save(ctx context.Context, catalog *Catalog) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecordFetcher retrieves a full specification record for a model from an
// external source (an LLM with web search).
type RecordFetcher interface {
	FetchRecord(ctx context.Context, model, variant string) (Record, error)
}
