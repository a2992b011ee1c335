package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefault tests built-in values
func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DataDir == "" {
		t.Error("DataDir is empty")
	}
	if cfg.Backend != "auto" {
		t.Errorf("Backend = %q, want auto", cfg.Backend)
	}
	if cfg.Daemon.ProbeInterval != 30*time.Second {
		t.Errorf("ProbeInterval = %v, want 30s", cfg.Daemon.ProbeInterval)
	}
	if cfg.Daemon.DebounceInterval != 500*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 500ms", cfg.Daemon.DebounceInterval)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Dashboard.Port = %d, want 8080", cfg.Dashboard.Port)
	}
}

// TestSaveLoad_RoundTrip tests TOML persistence
func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkstash.toml")

	cfg := Default()
	cfg.DataDir = "/tmp/stash-test"
	cfg.Backend = "flatfile"
	cfg.Remote.URL = "libsql://example.turso.io"
	cfg.Remote.User = "alice"
	cfg.Daemon.ProbeInterval = 10 * time.Second
	cfg.Dashboard.Port = 9000

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if loaded.DataDir != cfg.DataDir {
		t.Errorf("DataDir = %q, want %q", loaded.DataDir, cfg.DataDir)
	}
	if loaded.Backend != "flatfile" {
		t.Errorf("Backend = %q, want flatfile", loaded.Backend)
	}
	if loaded.Remote.URL != cfg.Remote.URL {
		t.Errorf("Remote.URL = %q, want %q", loaded.Remote.URL, cfg.Remote.URL)
	}
	if loaded.Remote.User != "alice" {
		t.Errorf("Remote.User = %q, want alice", loaded.Remote.User)
	}
	if loaded.Daemon.ProbeInterval != 10*time.Second {
		t.Errorf("ProbeInterval = %v, want 10s", loaded.Daemon.ProbeInterval)
	}
	if loaded.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want 9000", loaded.Dashboard.Port)
	}
}

// TestLoad_MissingExplicitFile tests the explicit-path error
func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Error("Load() of missing explicit file succeeded, want error")
	}
}

// TestSave_CreatesParentDirs tests directory creation
func TestSave_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "linkstash.toml")

	if err := Default().Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}

// TestDefaultPath tests the data-dir config location
func TestDefaultPath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	want := filepath.Join("/data", "linkstash.toml")
	if got := cfg.DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
