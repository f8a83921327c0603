package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"catalog-ingest/internal/config"
	"catalog-ingest/internal/datastore"
	"catalog-ingest/internal/store"
)

// runtime bundles what every store-backed command needs.
type runtime struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *store.Store
}

func (r *runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// loadConfig reads the configuration and applies a --db override, which is a
// connection string for postgres and a file path for sqlite.
func loadConfig(dbOverride string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dbOverride != "" {
		switch cfg.DataStore.Type {
		case datastore.SQLiteStore:
			cfg.DataStore.SQLitePath = dbOverride
		default:
			cfg.DataStore.ConnectionString = dbOverride
		}
	}
	return cfg, nil
}

func openRuntime(ctx context.Context, dbOverride string) (*runtime, error) {
	cfg, err := loadConfig(dbOverride)
	if err != nil {
		return nil, err
	}

	s, err := datastore.Open(ctx, cfg.DataStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}

	return &runtime{cfg: cfg, logger: cfg.NewLogger(), store: s}, nil
}

// describeStore renders the store target for display without credentials.
func describeStore(cfg datastore.Config) string {
	if cfg.Type == datastore.SQLiteStore {
		return "sqlite " + cfg.SQLitePath
	}
	return "postgresql " + maskConnectionString(cfg.ConnectionString)
}

// maskConnectionString masks sensitive parts of database connection string for display
func maskConnectionString(connStr string) string {
	if len(connStr) > 20 {
		return connStr[:10] + "..." + connStr[len(connStr)-10:]
	}
	return "***"
}
