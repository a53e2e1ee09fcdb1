package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/motospec/backend/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the catalog in one table whose columns are the catalog header.
// Every cell is stored as TEXT; missing cells are NULL. Save replaces the table in a
// single transaction.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if table == "" {
		table = "models"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	// a single connection serializes the read-modify-write cycle
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite catalog: %w", err)
	}
	return &SQLiteStore{db: db, table: table}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the table in insertion order. A missing table is an empty catalog.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Catalog, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&name)
	if err == sql.ErrNoRows {
		return domain.NewCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup catalog table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q ORDER BY rowid`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	catalog := &domain.Catalog{Columns: cols}
	for rows.Next() {
		cells := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		row := make(domain.Record, len(cols))
		for i, col := range cols {
			row[col] = sqliteCell(cells[i])
		}
		catalog.Rows = append(catalog.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Save drops and recreates the table with the catalog's header, then inserts every row.
func (s *SQLiteStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	if len(catalog.Columns) == 0 {
		return fmt.Errorf("%w: catalog has no columns", domain.ErrInvalidRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	defs := make([]string, len(catalog.Columns))
	quoted := make([]string, len(catalog.Columns))
	for i, col := range catalog.Columns {
		quoted[i] = fmt.Sprintf("%q", col)
		defs[i] = quoted[i] + " TEXT"
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, s.table)); err != nil {
		return fmt.Errorf("drop catalog table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, s.table, strings.Join(defs, ","))); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(catalog.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		s.table, strings.Join(quoted, ","), ph))
	if err != nil {
		return fmt.Errorf("prepare catalog insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range catalog.Rows {
		args := make([]interface{}, len(catalog.Columns))
		for i, col := range catalog.Columns {
			if row.Has(col) {
				args[i] = row.Text(col)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert catalog row %q: %w", row.Name(), err)
		}
	}

	return tx.Commit()
}

func sqliteCell(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return t
	}
}
