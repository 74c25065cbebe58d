package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.Backend.BaseURL = "http://chat.internal:8080"
	cfg.Sync.PollInterval = Duration{10 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.Backend.BaseURL != "http://chat.internal:8080" {
		t.Errorf("BaseURL = %q", loaded.Backend.BaseURL)
	}
	if loaded.Sync.PollInterval.Duration != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", loaded.Sync.PollInterval.Duration)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Sync.PollInterval.Duration != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Sync.PollInterval.Duration)
	}
	if cfg.Push.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.Push.MaxAttempts)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_session = \"main\"\n\n[push]\nmax_attempts = 3\nbackoff = \"250ms\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Push.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Push.MaxAttempts)
	}
	if cfg.Push.Backoff.Duration != 250*time.Millisecond {
		t.Errorf("Backoff = %v, want 250ms", cfg.Push.Backoff.Duration)
	}
	if cfg.Backend.APIPrefix != "/api" {
		t.Errorf("APIPrefix = %q, want /api", cfg.Backend.APIPrefix)
	}
	if cfg.Ledger.DSN == "" {
		t.Error("Ledger.DSN should default to the in-memory database")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[sync]\npoll_interval = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid duration")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
