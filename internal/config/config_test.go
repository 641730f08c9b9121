package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMemoryDefaults(t *testing.T) {
	t.Setenv("RUSHCAST_STORE_DRIVER", "memory")
	t.Setenv("RUSHCAST_BUS_DRIVER", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Listen != "127.0.0.1:3000" {
		t.Errorf("expected default listen 127.0.0.1:3000, got %s", cfg.API.Listen)
	}
	if cfg.Hub.QueueSize != 64 {
		t.Errorf("expected queue size 64, got %d", cfg.Hub.QueueSize)
	}
	if cfg.Hub.WriteTimeout != 10*time.Second {
		t.Errorf("expected write timeout 10s, got %v", cfg.Hub.WriteTimeout)
	}
	if cfg.Hub.PingInterval != 0 {
		t.Errorf("expected heartbeat disabled by default, got %v", cfg.Hub.PingInterval)
	}
	if cfg.NeedsDB() {
		t.Error("memory drivers should not need a database")
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("RUSHCAST_DB_DSN", "")
	t.Setenv("RUSHCAST_STORE_DRIVER", "postgres")
	t.Setenv("RUSHCAST_BUS_DRIVER", "memory")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when db.dsn is missing")
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rushcast.yaml")
	data := `
db:
  dsn: "postgres://rush@localhost/rush"
api:
  listen: "0.0.0.0:9000"
  allowed_origins: ["https://rush.example.org"]
hub:
  queue_size: 8
  ping_interval_seconds: 30
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RUSHCAST_API_LISTEN", "127.0.0.1:7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Listen != "127.0.0.1:7000" {
		t.Errorf("expected env listen override, got %s", cfg.API.Listen)
	}
	if cfg.DB.DSN != "postgres://rush@localhost/rush" {
		t.Errorf("unexpected dsn %s", cfg.DB.DSN)
	}
	if len(cfg.API.AllowedOrigins) != 1 || cfg.API.AllowedOrigins[0] != "https://rush.example.org" {
		t.Errorf("unexpected allowed origins %v", cfg.API.AllowedOrigins)
	}
	if cfg.Hub.QueueSize != 8 {
		t.Errorf("expected queue size 8, got %d", cfg.Hub.QueueSize)
	}
	if cfg.Hub.PingInterval != 30*time.Second {
		t.Errorf("expected ping interval 30s, got %v", cfg.Hub.PingInterval)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
}

func TestLoadRejectsUnknownBus(t *testing.T) {
	t.Setenv("RUSHCAST_STORE_DRIVER", "memory")
	t.Setenv("RUSHCAST_BUS_DRIVER", "redis")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown bus driver")
	}
}

func TestLoadRejectsSmallQueue(t *testing.T) {
	t.Setenv("RUSHCAST_STORE_DRIVER", "memory")
	t.Setenv("RUSHCAST_BUS_DRIVER", "memory")
	t.Setenv("RUSHCAST_HUB_QUEUE_SIZE", "5")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for a queue smaller than the priming headroom")
	}
}
