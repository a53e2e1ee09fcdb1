package catalog

import (
	"context"
	"sync"

	"github.com/motospec/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory catalog store. Load and Save copy the
// catalog so callers never share rows with the store.
type MemoryStore struct {
	catalog *domain.Catalog
	mutex   sync.RWMutex
}

// NewMemoryStore creates a store seeded with catalog; nil starts an empty catalog.
func NewMemoryStore(catalog *domain.Catalog) *MemoryStore {
	if catalog == nil {
		catalog = domain.NewCatalog()
	}
	return &MemoryStore{catalog: catalog.Clone()}
}

// Load returns a snapshot of the catalog
func (s *MemoryStore) Load(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.catalog.Clone(), nil
}

// Save replaces the catalog
func (s *MemoryStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.catalog = catalog.Clone()
	return nil
}

// Size returns the current number of rows (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.catalog.Rows)
}
