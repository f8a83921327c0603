package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout of CATALOG_CONFIG_FILE.
type fileConfig struct {
	CategoryIDs  []string `yaml:"category_ids"`
	HTTPAddr     string   `yaml:"http_addr"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	WatchDir     string   `yaml:"watch_dir"`
	PollInterval string   `yaml:"poll_interval"`
	MaxAttempts  int      `yaml:"max_attempts"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(fc.CategoryIDs) > 0 {
		cfg.CategoryIDs = fc.CategoryIDs
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.MaxBodyBytes
	}
	if fc.MaxAttempts > 0 {
		cfg.WatchMaxAttempts = fc.MaxAttempts
	}
	if fc.WatchDir != "" {
		cfg.WatchDir = fc.WatchDir
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", fc.PollInterval, err)
		}
		cfg.PollInterval = d
	}
	return nil
}
