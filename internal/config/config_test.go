package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"

meditation:
  userDailyLimit: 5
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}

	if cfg.Meditation.UserDailyLimit != 5 {
		t.Errorf("Expected user daily limit 5, got %d", cfg.Meditation.UserDailyLimit)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

func TestDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("server:\n  port: 4000\n")); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Meditation.UserDailyLimit != 3 {
		t.Errorf("Expected default user daily limit 3, got %d", cfg.Meditation.UserDailyLimit)
	}
	if cfg.Meditation.IPDailyLimit != 1 {
		t.Errorf("Expected default IP daily limit 1, got %d", cfg.Meditation.IPDailyLimit)
	}
	if cfg.Quotes.MinLength != 5 || cfg.Quotes.MaxLength != 500 {
		t.Errorf("Unexpected quote length bounds: %d-%d", cfg.Quotes.MinLength, cfg.Quotes.MaxLength)
	}
	if cfg.Auth.AccessTTL != 15*time.Minute {
		t.Errorf("Expected default access TTL 15m, got %v", cfg.Auth.AccessTTL)
	}
	if cfg.RateLimit.AuthMax != 5 {
		t.Errorf("Expected default auth limiter max 5, got %d", cfg.RateLimit.AuthMax)
	}
}
