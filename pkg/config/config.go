package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config carries the engine settings the page store and WAL are built from.
// It is loaded once at startup and passed down explicitly; nothing reads it
// from global state.
type Config struct {
	// CachePages is the page cache capacity in pages.
	CachePages int `toml:"cache_pages"`

	// WALPath is the location of the write-ahead log file.
	WALPath string `toml:"wal_path"`

	// WALBufferSize is the WAL writer's buffer size in bytes.
	WALBufferSize int `toml:"wal_buffer_size"`

	// LogLevel is the logging verbosity: DEBUG, INFO, WARN or ERROR.
	LogLevel string `toml:"log_level"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		CachePages:    50,
		WALPath:       "kitedb.wal",
		WALBufferSize: 2 * DefaultPageSize,
		LogLevel:      "INFO",
	}
}

// LoadFile reads a TOML config file and fills unset fields with defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML config bytes and fills unset fields with defaults.
func Parse(data []byte) (Config, error) {
	cfg := Config{}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	def := Default()
	if cfg.CachePages <= 0 {
		cfg.CachePages = def.CachePages
	}
	if cfg.WALPath == "" {
		cfg.WALPath = def.WALPath
	}
	if cfg.WALBufferSize <= 0 {
		cfg.WALBufferSize = def.WALBufferSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg, nil
}
