package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != DriverSQLite {
			t.Errorf("expected database driver %s, got %s", DriverSQLite, config.Database.Driver)
		}

		if config.Database.DSN != "./likebox.db" {
			t.Errorf("expected database dsn ./likebox.db, got %s", config.Database.DSN)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Sync.BatchSize != MaxBatchSize {
			t.Errorf("expected batch size %d, got %d", MaxBatchSize, config.Sync.BatchSize)
		}

		if config.Cache.TTL.Duration != 10*time.Minute {
			t.Errorf("expected cache ttl 10m, got %v", config.Cache.TTL.Duration)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.DSN != DefaultConfig().Database.DSN {
			t.Errorf("created config database dsn doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for omitted keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		content := "[server]\nport = 8088\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8088 {
			t.Errorf("expected port 8088, got %d", config.Server.Port)
		}
		if config.Sync.BatchSize != MaxBatchSize {
			t.Errorf("expected default batch size to survive, got %d", config.Sync.BatchSize)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport="), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("LIKEBOX_SPOTIFY_CLIENT_SECRET", "from-env")
		t.Setenv("LIKEBOX_SERVER_PORT", "9090")
		t.Setenv("LIKEBOX_DATABASE_DRIVER", "postgres")

		config := DefaultConfig()
		if err := LoadEnv(config, ""); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}

		if config.Credentials.Spotify.ClientSecret != "from-env" {
			t.Errorf("expected client secret from env, got %q", config.Credentials.Spotify.ClientSecret)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
		if config.Database.Driver != DriverPostgres {
			t.Errorf("expected postgres driver, got %s", config.Database.Driver)
		}
		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("unset env should not clear client id, got %q", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("dotenv file is loaded", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("LIKEBOX_JWT_SECRET=dotenv-secret\n"), 0600); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("LIKEBOX_JWT_SECRET") })

		config := DefaultConfig()
		if err := LoadEnv(config, envPath); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}
		if config.Server.JWTSecret != "dotenv-secret" {
			t.Errorf("expected jwt secret from .env, got %q", config.Server.JWTSecret)
		}
	})

	t.Run("missing dotenv file is ignored", func(t *testing.T) {
		config := DefaultConfig()
		if err := LoadEnv(config, filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected missing .env to be ignored, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "batch size too large", mutate: func(c *Config) { c.Sync.BatchSize = MaxBatchSize + 1 }},
		{name: "batch size zero", mutate: func(c *Config) { c.Sync.BatchSize = 0 }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }},
		{name: "unknown auth mode", mutate: func(c *Config) { c.Server.AuthMode = "basic" }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)

			err := config.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
