package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/datastore"
)

// Config is the runtime configuration of the ingestion commands.
type Config struct {
	DataStore        datastore.Config
	CategoryIDs      []string
	HTTPAddr         string
	MaxBodyBytes     int64
	WatchDir         string
	PollInterval     time.Duration
	WatchMaxAttempts int
	LogLevel         string
	LogFormat        string
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment take precedence.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load builds the configuration from defaults, the optional YAML file named
// by CATALOG_CONFIG_FILE, and the environment, in increasing precedence.
func Load() (*Config, error) {
	cfg := &Config{
		DataStore:        GetDataStoreConfig(),
		CategoryIDs:      append([]string(nil), catalog.DefaultCategoryIDs...),
		HTTPAddr:         ":8080",
		MaxBodyBytes:     32 << 20,
		WatchDir:         "inbox",
		PollInterval:     5 * time.Second,
		WatchMaxAttempts: 3,
		LogLevel:         "info",
		LogFormat:        "text",
	}

	if path := os.Getenv("CATALOG_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if ids := os.Getenv("CATALOG_CATEGORY_IDS"); ids != "" {
		cfg.CategoryIDs = splitList(ids)
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if limit := os.Getenv("HTTP_MAX_BODY_BYTES"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid HTTP_MAX_BODY_BYTES %q", limit)
		}
		cfg.MaxBodyBytes = n
	}
	if dir := os.Getenv("WATCH_DIR"); dir != "" {
		cfg.WatchDir = dir
	}
	if interval := os.Getenv("WATCH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid WATCH_INTERVAL %q: %w", interval, err)
		}
		cfg.PollInterval = d
	}
	if attempts := os.Getenv("WATCH_MAX_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid WATCH_MAX_ATTEMPTS %q", attempts)
		}
		cfg.WatchMaxAttempts = n
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	if len(cfg.CategoryIDs) == 0 {
		return nil, fmt.Errorf("category allow-list is empty")
	}
	return cfg, nil
}

// AllowList returns the configured category allow-list.
func (c *Config) AllowList() *catalog.AllowList {
	return catalog.NewAllowList(c.CategoryIDs...)
}

// GetDataStoreConfig returns the data store configuration based on environment variables
func GetDataStoreConfig() datastore.Config {
	storeType := os.Getenv("CATALOG_STORE_TYPE")

	config := datastore.Config{}

	switch strings.ToLower(storeType) {
	case "sqlite":
		config.Type = datastore.SQLiteStore
		config.SQLitePath = getSQLitePath()
	default:
		// postgresql, postgres, db or unset
		config.Type = datastore.PostgreSQLStore
		config.ConnectionString = GetConnectionString()
	}

	return config
}

// GetConnectionString returns the database connection string
func GetConnectionString() string {
	connStr := os.Getenv("DB_CONN_STRING")
	if connStr == "" {
		// Default connection string for local development
		return "postgres://localhost:5432/postgres?sslmode=disable"
	}
	return connStr
}

func getSQLitePath() string {
	path := os.Getenv("CATALOG_SQLITE_PATH")
	if path == "" {
		return "catalog.db"
	}
	return path
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
