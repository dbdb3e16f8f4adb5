package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPageSizeDefault(t *testing.T) {
	if PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d, want %d", PageSize(), DefaultPageSize)
	}
}

func TestSetAndResetPageSize(t *testing.T) {
	defer ResetPageSize()

	SetPageSize(1024)
	if PageSize() != 1024 {
		t.Errorf("PageSize() = %d after SetPageSize(1024)", PageSize())
	}

	ResetPageSize()
	if PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d after reset, want %d", PageSize(), DefaultPageSize)
	}
}

func TestSetPageSizeRejectsNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SetPageSize(0) should panic")
		}
	}()
	SetPageSize(0)
}

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
cache_pages = 128
wal_path = "/var/lib/kitedb/kitedb.wal"
wal_buffer_size = 16384
log_level = "DEBUG"
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.CachePages != 128 {
		t.Errorf("CachePages = %d, want 128", cfg.CachePages)
	}
	if cfg.WALPath != "/var/lib/kitedb/kitedb.wal" {
		t.Errorf("WALPath = %q", cfg.WALPath)
	}
	if cfg.WALBufferSize != 16384 {
		t.Errorf("WALBufferSize = %d, want 16384", cfg.WALBufferSize)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`cache_pages = 10`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	def := Default()
	if cfg.CachePages != 10 {
		t.Errorf("CachePages = %d, want 10", cfg.CachePages)
	}
	if cfg.WALPath != def.WALPath || cfg.WALBufferSize != def.WALBufferSize || cfg.LogLevel != def.LogLevel {
		t.Errorf("unset fields not defaulted: %+v", cfg)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("cache_pages = [not toml")); err == nil {
		t.Error("invalid TOML should be rejected")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitedb.toml")
	if err := os.WriteFile(path, []byte(`cache_pages = 5`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CachePages != 5 {
		t.Errorf("CachePages = %d, want 5", cfg.CachePages)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should be an error")
	}
}
