package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/motospec/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCatalogStore is a mock implementation of domain.CatalogStore
type MockCatalogStore struct {
	mu      sync.Mutex
	catalog *domain.Catalog
	loadErr error
	saveErr error
	saves   int
}

func NewMockCatalogStore(rows ...domain.Record) *MockCatalogStore {
	return &MockCatalogStore{catalog: newTestCatalog(rows...)}
}

func (m *MockCatalogStore) Load(ctx context.Context) (*domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.catalog.Clone(), nil
}

func (m *MockCatalogStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.catalog = catalog.Clone()
	return nil
}

func TestCatalogMutator_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("appends a row and serializes lists", func(t *testing.T) {
		store := NewMockCatalogStore(motorcycle("Interceptor 650", 648.0, "47 PS"))
		mutator := NewCatalogMutator(store, zerolog.Nop())

		record := domain.Record{
			domain.FieldModels: "Shotgun 650",
			FieldPrices:        []string{"3,59,430", "3,73,000"},
			"Colors":           []interface{}{"Sheetmetal Grey", "Plasma Blue"},
		}
		require.NoError(t, mutator.Append(ctx, record))

		c, _ := store.Load(ctx)
		require.Len(t, c.Rows, 2)
		row := c.Find("Shotgun 650")
		require.NotNil(t, row)
		assert.Equal(t, `["3,59,430","3,73,000"]`, row[FieldPrices])
		assert.Equal(t, `["Sheetmetal Grey","Plasma Blue"]`, row["Colors"])

		// The caller's record keeps its list values
		assert.IsType(t, []string{}, record[FieldPrices])
	})

	t.Run("new fields extend the header", func(t *testing.T) {
		store := NewMockCatalogStore()
		mutator := NewCatalogMutator(store, zerolog.Nop())

		require.NoError(t, mutator.Append(ctx, domain.Record{domain.FieldModels: "X", "Launch Year": "2024"}))

		c, _ := store.Load(ctx)
		assert.Equal(t, "Launch Year", c.Columns[len(c.Columns)-1])
	})

	t.Run("duplicates are appended", func(t *testing.T) {
		store := NewMockCatalogStore(motorcycle("Interceptor 650", 648.0, "47 PS"))
		mutator := NewCatalogMutator(store, zerolog.Nop())

		require.NoError(t, mutator.Append(ctx, motorcycle("Interceptor 650", 648.0, "47 PS")))

		c, _ := store.Load(ctx)
		assert.Len(t, c.Rows, 2)
	})

	t.Run("store failures are catalog errors", func(t *testing.T) {
		store := NewMockCatalogStore()
		store.saveErr = errors.New("disk full")
		mutator := NewCatalogMutator(store, zerolog.Nop())

		err := mutator.Append(ctx, domain.Record{domain.FieldModels: "X"})
		assert.True(t, errors.Is(err, domain.ErrCatalogUnavailable))
		assert.Contains(t, err.Error(), "disk full")

		store.saveErr = nil
		store.loadErr = errors.New("permission denied")
		err = mutator.Append(ctx, domain.Record{domain.FieldModels: "X"})
		assert.True(t, errors.Is(err, domain.ErrCatalogUnavailable))
	})

	t.Run("nil record is rejected", func(t *testing.T) {
		mutator := NewCatalogMutator(NewMockCatalogStore(), zerolog.Nop())
		assert.True(t, errors.Is(mutator.Append(ctx, nil), domain.ErrInvalidRecord))
	})

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		store := NewMockCatalogStore()
		mutator := NewCatalogMutator(store, zerolog.Nop())

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				assert.NoError(t, mutator.Append(ctx, domain.Record{domain.FieldModels: string(rune('A' + id))}))
			}(i)
		}
		wg.Wait()

		c, _ := store.Load(ctx)
		assert.Len(t, c.Rows, 20)
		assert.Equal(t, 20, store.saves)
	})
}
