package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"UNIFY_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"UNIFY_DB_MAX_CONNS" default:"8"`

	Workers                 int           `envconfig:"UNIFY_WORKERS" default:"4"`
	JobRetention            time.Duration `envconfig:"UNIFY_JOB_RETENTION" default:"5m"`
	AdapterTimeout          time.Duration `envconfig:"UNIFY_ADAPTER_TIMEOUT" default:"10s"`
	DestructiveCallInterval time.Duration `envconfig:"UNIFY_DESTRUCTIVE_CALL_INTERVAL" default:"500ms"`

	// Comma-separated staged source adapters to enable.
	Sources string `envconfig:"UNIFY_SOURCES" default:"api_search,page_extract,text_extract,public_profile,directory"`

	// Optional "key=value" pair lists overriding the built-in tables,
	// e.g. UNIFY_SOURCE_CONFIDENCE="api_search=85,directory=70".
	SourceConfidence string `envconfig:"UNIFY_SOURCE_CONFIDENCE" default:""`
	AccountWeights   string `envconfig:"UNIFY_ACCOUNT_WEIGHTS" default:""`
	ContactWeights   string `envconfig:"UNIFY_CONTACT_WEIGHTS" default:""`

	// Bcrypt hash of the admin token guarding mutating API routes.
	AdminTokenHash     string `envconfig:"UNIFY_ADMIN_TOKEN_HASH" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("UNIFY_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("UNIFY_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("UNIFY_DB_MIN_CONNS (%d) cannot exceed UNIFY_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("UNIFY_WORKERS must be >= 1")
	}
	if c.JobRetention < time.Second {
		return fmt.Errorf("UNIFY_JOB_RETENTION must be >= 1s")
	}
	if c.AdapterTimeout < time.Millisecond {
		return fmt.Errorf("UNIFY_ADAPTER_TIMEOUT must be >= 1ms")
	}
	if c.DestructiveCallInterval < 0 {
		return fmt.Errorf("UNIFY_DESTRUCTIVE_CALL_INTERVAL must be >= 0")
	}
	if len(c.SourceList()) == 0 {
		return fmt.Errorf("UNIFY_SOURCES must name at least one source")
	}
	if _, err := c.SourceConfidenceOverrides(); err != nil {
		return fmt.Errorf("UNIFY_SOURCE_CONFIDENCE: %w", err)
	}
	if _, err := c.AccountWeightOverrides(); err != nil {
		return fmt.Errorf("UNIFY_ACCOUNT_WEIGHTS: %w", err)
	}
	if _, err := c.ContactWeightOverrides(); err != nil {
		return fmt.Errorf("UNIFY_CONTACT_WEIGHTS: %w", err)
	}
	return nil
}

// SourceList returns the deduplicated, normalized list of enabled sources.
func (c *Config) SourceList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.Sources, ",")
	sources := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		source := strings.ToLower(strings.TrimSpace(part))
		if source == "" {
			continue
		}
		if _, exists := seen[source]; exists {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}

func (c *Config) SourceConfidenceOverrides() (map[string]int, error) {
	return parseIntPairs(c.SourceConfidence)
}

func (c *Config) AccountWeightOverrides() (map[string]int, error) {
	return parseIntPairs(c.AccountWeights)
}

func (c *Config) ContactWeightOverrides() (map[string]int, error) {
	return parseIntPairs(c.ContactWeights)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

func parseIntPairs(raw string) (map[string]int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	pairs := map[string]int{}
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("entry %q must be key=value", part)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("entry %q has an empty key", part)
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("entry %q has a non-integer value", part)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("entry %q must not be negative", part)
		}
		pairs[key] = parsed
	}
	return pairs, nil
}
