package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != "postgres" || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitejo.yaml")
	body := []byte("port: \"9000\"\nstore_driver: memory\nsession_ttl: 2h\nmax_upload_bytes: 1024\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")
	t.Setenv("LECTURER_CACHE_TTL", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should override file: port=%s", cfg.Port)
	}
	if cfg.StoreDriver != "memory" || cfg.SessionTTL != 2*time.Hour || cfg.MaxUploadBytes != 1024 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.LecturerCacheTTL != 30*time.Second {
		t.Errorf("seconds form not parsed: %v", cfg.LecturerCacheTTL)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, true},
		{"prod default secret", func(c *Config) { c.Env = "production" }, true},
		{"prod custom secret", func(c *Config) { c.Env = "production"; c.SessionSecret = "s3cr3t-value" }, false},
		{"memory without dsn", func(c *Config) { c.StoreDriver = "memory"; c.DBURL = "" }, false},
		{"postgres without dsn", func(c *Config) { c.DBURL = "" }, true},
		{"zero upload", func(c *Config) { c.MaxUploadBytes = 0 }, true},
		{"admin email only", func(c *Config) { c.AdminEmail = "root@kampus.ac.id" }, true},
		{"admin bootstrap", func(c *Config) { c.AdminEmail = "root@kampus.ac.id"; c.AdminPassword = "password123" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
