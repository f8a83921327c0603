package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store owns the connection pool to the catalog database.
type Store struct {
	db *sqlx.DB
}

// TableCounts is the number of rows in each catalog table.
type TableCounts struct {
	Categories             int `db:"categories" json:"categories"`
	Products               int `db:"products" json:"products"`
	Parameters             int `db:"parameters" json:"parameters"`
	ParameterValues        int `db:"parameter_values" json:"parameter_values"`
	ProductParameterValues int `db:"product_parameter_values" json:"product_parameter_values"`
}

// NewStoreFromDB constructs a Store from an existing *sqlx.DB. Useful for tests.
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// InitDB creates the catalog tables if they do not exist yet.
func (s *Store) InitDB(ctx context.Context) error {
	ddl, err := schemaFor(s.db.DriverName())
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to execute init SQL: %w", err)
	}
	return nil
}

func schemaFor(driverName string) (string, error) {
	var file string
	switch driverName {
	case "postgres":
		file = "schema/postgres.sql"
	case "sqlite":
		file = "schema/sqlite.sql"
	default:
		return "", fmt.Errorf("no schema for driver %q", driverName)
	}

	b, err := schemaFS.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read schema %s: %w", file, err)
	}
	return string(b), nil
}

// WithTx runs fn inside one transaction. The transaction is committed when
// fn returns nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(w *Writer) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(NewWriter(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Counts returns the current row count of every catalog table.
func (s *Store) Counts(ctx context.Context) (*TableCounts, error) {
	query := `SELECT
	         (SELECT COUNT(*) FROM categories) AS categories,
	         (SELECT COUNT(*) FROM products) AS products,
	         (SELECT COUNT(*) FROM parameters) AS parameters,
	         (SELECT COUNT(*) FROM parameter_values) AS parameter_values,
	         (SELECT COUNT(*) FROM product_parameter_values) AS product_parameter_values`

	var counts TableCounts
	if err := s.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count catalog rows: %w", err)
	}
	return &counts, nil
}
