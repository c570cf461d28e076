// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type (
	// Config is the root server configuration.
	Config struct {
		Server  ServerConfig
		Catalog CatalogConfig
		Storage StorageConfig
		Auth    AuthConfig
	}

	ServerConfig struct {
		ListenAddress  string   `env:"LISTEN_ADDRESS" env-default:":3002"`
		LogLevel       string   `env:"LOG_LEVEL"      env-default:"info"`
		AllowedOrigins []string `env:"CORS_ORIGINS"   env-default:"https://*,http://*" env-separator:","`

		// Long-lived socket.io connections rule out a write timeout.
		ReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" env-default:"10s"`
	}

	// CatalogConfig holds IGDB and Twitch identity settings.
	CatalogConfig struct {
		ClientID       string        `env:"IGDB_CLIENT_ID"`
		ClientSecret   string        `env:"IGDB_CLIENT_SECRET"`
		TokenURL       string        `env:"IGDB_TOKEN_URL"        env-default:"https://id.twitch.tv/oauth2/token"`
		BaseURL        string        `env:"IGDB_API_URL"          env-default:"https://api.igdb.com/v4"`
		Timeout        time.Duration `env:"IGDB_TIMEOUT"          env-default:"10s"`
		RequestsPerSec float64       `env:"IGDB_REQUESTS_PER_SEC" env-default:"4"`
		CacheSize      int           `env:"CATALOG_CACHE_SIZE"    env-default:"1024"`
		GameTTL        time.Duration `env:"CATALOG_GAME_TTL"      env-default:"10m"`
		SearchTTL      time.Duration `env:"CATALOG_SEARCH_TTL"    env-default:"5m"`
	}

	// StorageConfig selects and configures the collection store backend.
	StorageConfig struct {
		Type           string `env:"STORAGE_TYPE"       env-default:"memory"`
		LocalPath      string `env:"LOCAL_STORAGE_PATH" env-default:"./data"`
		DataSourceName string `env:"DATA_SOURCE_NAME"   env-default:"gamedex.db"`
		BucketName     string `env:"S3_BUCKET_NAME"`
		DatabaseURL    string `env:"DATABASE_URL"`
	}

	AuthConfig struct {
		JWTSecret          string        `env:"JWT_SECRET"`
		TokenTTL           time.Duration `env:"JWT_TTL"              env-default:"168h"`
		GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
		GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
		GitHubRedirectURL  string        `env:"GITHUB_REDIRECT_URL"`
	}
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot make safe.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Type) {
	case "memory", "filesystem", "sqlite":
	case "s3":
		if c.Storage.BucketName == "" {
			return fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for postgres storage type")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Catalog.CacheSize <= 0 {
		return fmt.Errorf("CATALOG_CACHE_SIZE must be positive, got %d", c.Catalog.CacheSize)
	}
	if c.Catalog.RequestsPerSec <= 0 {
		return fmt.Errorf("IGDB_REQUESTS_PER_SEC must be positive, got %v", c.Catalog.RequestsPerSec)
	}
	return nil
}

// Warn logs settings that leave parts of the service disabled.
func (c *Config) Warn() {
	if c.Catalog.ClientID == "" || c.Catalog.ClientSecret == "" {
		logrus.Warn("IGDB_CLIENT_ID / IGDB_CLIENT_SECRET are not set. Catalog requests will fail.")
	}
	if c.Auth.JWTSecret == "" {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
}
