package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"catalog-ingest/internal/store"
)

// Type represents the type of data store to use
type Type string

const (
	// PostgreSQLStore uses a PostgreSQL database
	PostgreSQLStore Type = "postgresql"
	// SQLiteStore uses a local SQLite file
	SQLiteStore Type = "sqlite"
)

// Config holds configuration for data store creation
type Config struct {
	Type             Type
	ConnectionString string
	SQLitePath       string
}

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the store described by cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*store.Store, error) {
	var (
		driverName string
		dsn        string
	)

	switch cfg.Type {
	case PostgreSQLStore:
		driverName, dsn = "postgres", cfg.ConnectionString
	case SQLiteStore:
		driverName, dsn = "sqlite", sqliteDSN(cfg.SQLitePath)
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(cfg.Type)}
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Type == SQLiteStore {
		// SQLite serializes writers; an in-memory database also only exists
		// on the connection that created it.
		db.SetMaxOpenConns(1)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return store.NewStoreFromDB(db), nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = MemoryPath
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// UnsupportedStoreTypeError is returned when an unsupported store type is requested
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}
