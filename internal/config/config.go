package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Storage  StorageConfig  `toml:"storage"`
	Catalog  CatalogConfig  `toml:"catalog"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port            string   `toml:"port"`
	Version         string   `toml:"version"`
	AllowOrigins    []string `toml:"allow_origins"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow Duration `toml:"rate_limit_window"`
}

// DatabaseConfig contains the Postgres connection string
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig contains cache connection settings
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StorageConfig contains object storage settings for catalogue snapshots
type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
}

// CatalogConfig tunes the storefront catalogue
type CatalogConfig struct {
	CacheTTL         Duration `toml:"cache_ttl"`
	RefreshInterval  Duration `toml:"refresh_interval"`
	SnapshotInterval Duration `toml:"snapshot_interval"`
	RelatedLimit     int      `toml:"related_limit"`
}

// Duration decodes TOML strings such as "10m" into a time.Duration
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Version:         "1.0.0",
			AllowOrigins:    []string{"*"},
			RateLimit:       120,
			RateLimitWindow: Duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "catalog-snapshots",
		},
		Catalog: CatalogConfig{
			CacheTTL:         Duration{10 * time.Minute},
			RefreshInterval:  Duration{5 * time.Minute},
			SnapshotInterval: Duration{24 * time.Hour},
			RelatedLimit:     8,
		},
	}
}

// Load reads filename over the defaults, then applies environment overrides.
// An empty filename skips the file.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		if _, err := toml.DecodeFile(filename, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if c.Catalog.CacheTTL.Duration <= 0 {
		return fmt.Errorf("catalog.cache_ttl must be positive")
	}
	if c.Catalog.RelatedLimit < 0 || c.Catalog.RelatedLimit > 12 {
		return fmt.Errorf("catalog.related_limit must be between 0 and 12")
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	setString(&c.Storage.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Bucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}
