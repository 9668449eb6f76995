package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxBatchSize is the largest number of writes committed in one atomic batch.
const MaxBatchSize = 20

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Cache       CacheConfig       `toml:"cache"`
	Export      ExportConfig      `toml:"export"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains platform-specific credentials.
type CredentialsConfig struct {
	Spotify    SpotifyConfig    `toml:"spotify"`
	AppleMusic AppleMusicConfig `toml:"apple_music"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether the client credentials are present.
func (c SpotifyConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// AppleMusicConfig contains the MusicKit signing key used for developer tokens.
type AppleMusicConfig struct {
	TeamID         string `toml:"team_id"`
	KeyID          string `toml:"key_id"`
	PrivateKeyPath string `toml:"private_key_path"`
	PrivateKey     string `toml:"private_key"`
}

// Configured reports whether a developer token can be signed.
func (c AppleMusicConfig) Configured() bool {
	return c.TeamID != "" && c.KeyID != "" && (c.PrivateKey != "" || c.PrivateKeyPath != "")
}

// KeyPEM returns the PEM-encoded signing key, reading it from disk when only a path is set.
func (c AppleMusicConfig) KeyPEM() ([]byte, error) {
	if c.PrivateKey != "" {
		return []byte(c.PrivateKey), nil
	}
	if c.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: apple music private key", ErrMissingCredentials)
	}
	data, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read apple music private key: %w", err)
	}
	return data, nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server and caller-identity settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	AuthMode     string `toml:"auth_mode"`
	JWTSecret    string `toml:"jwt_secret"`
	OIDCIssuer   string `toml:"oidc_issuer"`
	OIDCAudience string `toml:"oidc_audience"`
	StateSecret  string `toml:"state_secret"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SyncConfig tunes reconciliation against the platforms and the store.
type SyncConfig struct {
	BatchSize            int      `toml:"batch_size"`
	RateLimit            float64  `toml:"rate_limit"`
	IndexRetryMaxElapsed Duration `toml:"index_retry_max_elapsed"`
}

// CacheConfig sizes the immutable content read cache.
type CacheConfig struct {
	MaxSize int64    `toml:"max_size"`
	TTL     Duration `toml:"ttl"`
}

// ExportConfig configures library snapshot sinks.
type ExportConfig struct {
	Dir            string `toml:"dir"`
	MinioEndpoint  string `toml:"minio_endpoint"`
	MinioAccessKey string `toml:"minio_access_key"`
	MinioSecretKey string `toml:"minio_secret_key"`
	MinioBucket    string `toml:"minio_bucket"`
	MinioUseSSL    bool   `toml:"minio_use_ssl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so TOML can hold values like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// envOverlay holds raw env values layered over the TOML file. Empty values leave the file untouched.
type envOverlay struct {
	SpotifyClientID     string `env:"LIKEBOX_SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"LIKEBOX_SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `env:"LIKEBOX_SPOTIFY_REDIRECT_URI"`
	AppleTeamID         string `env:"LIKEBOX_APPLE_MUSIC_TEAM_ID"`
	AppleKeyID          string `env:"LIKEBOX_APPLE_MUSIC_KEY_ID"`
	ApplePrivateKey     string `env:"LIKEBOX_APPLE_MUSIC_PRIVATE_KEY"`
	DatabaseDriver      string `env:"LIKEBOX_DATABASE_DRIVER"`
	DatabaseDSN         string `env:"LIKEBOX_DATABASE_DSN"`
	ServerPort          int    `env:"LIKEBOX_SERVER_PORT"`
	JWTSecret           string `env:"LIKEBOX_JWT_SECRET"`
	StateSecret         string `env:"LIKEBOX_STATE_SECRET"`
	OIDCIssuer          string `env:"LIKEBOX_OIDC_ISSUER"`
	MinioAccessKey      string `env:"LIKEBOX_MINIO_ACCESS_KEY"`
	MinioSecretKey      string `env:"LIKEBOX_MINIO_SECRET_KEY"`
	LogLevel            string `env:"LIKEBOX_LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads envFile (if present) into the process environment and overlays LIKEBOX_* variables onto c.
func LoadEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var raw envOverlay
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	override(&c.Credentials.Spotify.ClientID, raw.SpotifyClientID)
	override(&c.Credentials.Spotify.ClientSecret, raw.SpotifyClientSecret)
	override(&c.Credentials.Spotify.RedirectURI, raw.SpotifyRedirectURI)
	override(&c.Credentials.AppleMusic.TeamID, raw.AppleTeamID)
	override(&c.Credentials.AppleMusic.KeyID, raw.AppleKeyID)
	override(&c.Credentials.AppleMusic.PrivateKey, raw.ApplePrivateKey)
	override(&c.Database.Driver, raw.DatabaseDriver)
	override(&c.Database.DSN, raw.DatabaseDSN)
	override(&c.Server.JWTSecret, raw.JWTSecret)
	override(&c.Server.StateSecret, raw.StateSecret)
	override(&c.Server.OIDCIssuer, raw.OIDCIssuer)
	override(&c.Export.MinioAccessKey, raw.MinioAccessKey)
	override(&c.Export.MinioSecretKey, raw.MinioSecretKey)
	override(&c.Log.Level, raw.LogLevel)
	if raw.ServerPort != 0 {
		c.Server.Port = raw.ServerPort
	}

	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Sync.BatchSize < 1 || c.Sync.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: sync.batch_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxBatchSize, c.Sync.BatchSize)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Server.AuthMode {
	case AuthModeHMAC, AuthModeOIDC:
	default:
		return fmt.Errorf("%w: unsupported auth_mode %q", ErrInvalidConfig, c.Server.AuthMode)
	}

	return nil
}

// Server auth modes.
const (
	AuthModeHMAC = "hmac"
	AuthModeOIDC = "oidc"
)
