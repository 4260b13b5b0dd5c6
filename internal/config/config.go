// Package config loads chirp's settings. Values are layered: built-in
// defaults, then an optional YAML file, then a .env file, then the process
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Identity  IdentityConfig  `yaml:"identity"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig controls the HTTP listener and the per-client flood guard.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	FloodRPS        float64       `yaml:"flood_rps" env:"SERVER_FLOOD_RPS"`
	FloodBurst      int           `yaml:"flood_burst" env:"SERVER_FLOOD_BURST"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the Postgres store. An empty DSN keeps data in memory.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

// RedisConfig selects the shared rate limiter. An empty URL uses the
// in-process limiter.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// IdentityConfig points at the identity provider's backend API. Without a
// secret key authors are served from an empty static directory.
type IdentityConfig struct {
	BaseURL    string        `yaml:"base_url" env:"IDENTITY_API_URL"`
	SecretKey  string        `yaml:"secret_key" env:"IDENTITY_SECRET_KEY"`
	Timeout    time.Duration `yaml:"timeout" env:"IDENTITY_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"IDENTITY_MAX_RETRIES"`
	CacheSize  int           `yaml:"cache_size" env:"IDENTITY_CACHE_SIZE"`
	CacheTTL   time.Duration `yaml:"cache_ttl" env:"IDENTITY_CACHE_TTL"`
}

// AuthConfig verifies session tokens. PublicKey (PEM, RS256) wins over
// HMACSecret (HS256, development only).
type AuthConfig struct {
	PublicKey         string   `yaml:"public_key" env:"AUTH_PUBLIC_KEY"`
	HMACSecret        string   `yaml:"hmac_secret" env:"AUTH_HMAC_SECRET"`
	Issuer            string   `yaml:"issuer" env:"AUTH_ISSUER"`
	AuthorizedParties []string `yaml:"authorized_parties" env:"AUTH_AUTHORIZED_PARTIES"`
}

// RateLimitConfig is the per-user write limit.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit" env:"RATELIMIT_LIMIT"`
	Window time.Duration `yaml:"window" env:"RATELIMIT_WINDOW"`
	Prefix string        `yaml:"prefix" env:"RATELIMIT_PREFIX"`
}

// LoggingConfig selects the logrus level and formatter.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CORSConfig lists origins allowed to call the API and open the stream.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FloodRPS:        20,
			FloodBurst:      40,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Identity: IdentityConfig{
			BaseURL:    "https://api.clerk.com",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			CacheSize:  1024,
			CacheTTL:   5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Limit:  5,
			Window: time.Minute,
			Prefix: "@upstash/ratelimit",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; a missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.CORS.AllowedOrigins = trimAll(c.CORS.AllowedOrigins)
	c.Auth.AuthorizedParties = trimAll(c.Auth.AuthorizedParties)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.RateLimit.Limit <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.limit must be positive"))
	}
	if c.RateLimit.Window < time.Second {
		errs = append(errs, fmt.Errorf("ratelimit.window must be at least 1s"))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", c.Logging.Format))
	}
	if c.Identity.SecretKey != "" && c.Identity.BaseURL == "" {
		errs = append(errs, fmt.Errorf("identity.base_url is required with a secret key"))
	}
	return errors.Join(errs...)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
