package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the dedup engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8086"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, merge locking)
	Redis RedisConfig `yaml:"redis"`

	// Dedup holds similarity and merge policy knobs.
	Dedup DedupConfig `yaml:"dedup"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without the portal auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:"https://auth.trdrhub.com=https://auth.trdrhub.com/.well-known/jwks.json"`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"trdrhub"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dedup_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration. Redis is optional: when Host is
// empty the merge coordinator relies solely on the database's conditional
// writes for concurrency control.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// DedupConfig holds duplicate-detection and merge policy settings.
type DedupConfig struct {
	// IdentifierWeight and TextWeight blend the structured-identifier and
	// text-similarity signals into the overall score. They should sum to 1.
	IdentifierWeight float64 `yaml:"identifier_weight" env:"DEDUP_IDENTIFIER_WEIGHT" env-default:"0.7"`
	TextWeight       float64 `yaml:"text_weight" env:"DEDUP_TEXT_WEIGHT" env-default:"0.3"`

	// ContentSimilarityFloor is the minimum content similarity for a session
	// that does not share an LC number to appear as a candidate.
	ContentSimilarityFloor float64 `yaml:"content_similarity_floor" env:"DEDUP_CONTENT_SIMILARITY_FLOOR" env-default:"0.5"`

	// MaxCandidates caps the candidate list returned per source session.
	MaxCandidates int `yaml:"max_candidates" env:"DEDUP_MAX_CANDIDATES" env-default:"20"`

	// MergeLockTTLSeconds bounds how long a Redis merge lock may outlive a
	// crashed request.
	MergeLockTTLSeconds int `yaml:"merge_lock_ttl_seconds" env:"DEDUP_MERGE_LOCK_TTL_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.Dedup.validate(); err != nil {
		return nil, fmt.Errorf("invalid dedup configuration: %w", err)
	}

	return cfg, nil
}

func (c *DedupConfig) validate() error {
	if c.IdentifierWeight < 0 || c.TextWeight < 0 {
		return fmt.Errorf("similarity weights must be non-negative")
	}
	if c.IdentifierWeight+c.TextWeight == 0 {
		return fmt.Errorf("at least one similarity weight must be positive")
	}
	if c.ContentSimilarityFloor < 0 || c.ContentSimilarityFloor > 1 {
		return fmt.Errorf("content_similarity_floor must be in [0,1]")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
