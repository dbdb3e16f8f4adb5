package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kite.log")

	if err := Init(Config{Level: LevelInfo, OutputPath: path, Format: "json"}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	defer Close()

	GetLogger().Info("hello", "component", "test")
	if err := Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestDoubleInitRejected(t *testing.T) {
	if err := Init(Config{Level: LevelDebug}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	defer Close()

	if err := Init(Config{Level: LevelDebug}); err == nil {
		t.Error("second init without close should fail")
	}
}

func TestGetLoggerLazyInit(t *testing.T) {
	Close()
	if GetLogger() == nil {
		t.Fatal("GetLogger should lazily initialize")
	}
	Close()
}

func TestForComponent(t *testing.T) {
	defer Close()
	if ForComponent("PageStore") == nil {
		t.Error("component logger should never be nil")
	}
}
