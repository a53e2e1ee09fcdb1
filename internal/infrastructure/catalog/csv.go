package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/motospec/backend/internal/domain"
)

// naTokens are read as missing cells, the same set pandas treats as NA by default.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// CSVStore keeps the catalog in a single CSV file with a header row. Save rewrites
// the whole file through a temp file and rename.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store backed by path. The file is created on first Save.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load reads the whole file. A missing file is an empty catalog.
func (s *CSVStore) Load(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog csv: %w", err)
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.NewCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	catalog := &domain.Catalog{Columns: headers}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row %d: %w", len(catalog.Rows)+1, err)
		}
		row := make(domain.Record, len(headers))
		for i, h := range headers {
			if i < len(rec) && !naTokens[rec[i]] {
				row[h] = rec[i]
			} else {
				row[h] = nil
			}
		}
		catalog.Rows = append(catalog.Rows, row)
	}
	return catalog, nil
}

// Save writes the catalog header and every row; missing cells are written empty.
func (s *CSVStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(catalog.Columns); err != nil {
		return err
	}
	for _, row := range catalog.Rows {
		rec := make([]string, len(catalog.Columns))
		for i, col := range catalog.Columns {
			rec[i] = row.Text(col)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode catalog csv: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create catalog directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write catalog csv: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace catalog csv: %w", err)
	}
	return nil
}
