package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/motospec/backend/internal/domain"
	"github.com/rs/zerolog"
)

// CatalogMutator appends accepted records to the catalog store. Appends are a full
// read-modify-write of the store, serialized within this process.
type CatalogMutator struct {
	store  domain.CatalogStore
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewCatalogMutator creates a mutator over store
func NewCatalogMutator(store domain.CatalogStore, logger zerolog.Logger) *CatalogMutator {
	return &CatalogMutator{store: store, logger: logger}
}

// Append serializes list fields to JSON strings, appends the record as a new row and
// rewrites the whole catalog. Duplicates and missing fields are not checked.
func (m *CatalogMutator) Append(ctx context.Context, record domain.Record) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", domain.ErrInvalidRecord)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	catalog, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %v", domain.ErrCatalogUnavailable, err)
	}

	catalog.Append(record.Flatten())

	if err := m.store.Save(ctx, catalog); err != nil {
		return fmt.Errorf("%w: save: %v", domain.ErrCatalogUnavailable, err)
	}

	m.logger.Info().
		Str("model", record.Name()).
		Int("rows", len(catalog.Rows)).
		Msg("appended record to catalog")
	return nil
}
