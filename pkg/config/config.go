package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ownership-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (registry response cache)
	Redis RedisConfig `yaml:"redis"`

	// Registry API configuration
	Registry RegistryConfig `yaml:"registry"`

	// LLM extraction configuration
	LLM LLMConfig `yaml:"llm"`

	// Enrichment scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Resolution engine configuration
	Resolution ResolutionConfig `yaml:"resolution"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ownership"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ownership_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis cache configuration. When Addr is empty the engine
// falls back to an in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:""`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// RegistryConfig holds company and charity registry API settings.
type RegistryConfig struct {
	CompaniesBaseURL string `yaml:"companies_base_url" env:"REGISTRY_COMPANIES_BASE_URL" env-default:"https://api.company-information.service.gov.uk"`
	DocumentBaseURL  string `yaml:"document_base_url" env:"REGISTRY_DOCUMENT_BASE_URL" env-default:"https://document-api.company-information.service.gov.uk"`
	CharityBaseURL   string `yaml:"charity_base_url" env:"REGISTRY_CHARITY_BASE_URL" env-default:"https://api.charitycommission.gov.uk/register/api"`

	CompaniesAPIKey string `yaml:"-" env:"REGISTRY_COMPANIES_API_KEY"` // Secret - not in YAML
	CharityAPIKey   string `yaml:"-" env:"REGISTRY_CHARITY_API_KEY"`   // Secret - not in YAML

	// CacheTTLMinutes is how long successful registry responses are cached.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"REGISTRY_CACHE_TTL_MINUTES" env-default:"1440"`

	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"REGISTRY_TIMEOUT_SECONDS" env-default:"30"`
}

// CacheTTL returns the registry cache TTL as a duration.
func (c *RegistryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Timeout returns the per-request HTTP timeout as a duration.
func (c *RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMConfig holds settings for the LLM-backed document extraction path.
type LLMConfig struct {
	// Provider selects the backend: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	BaseURL  string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds bounds a single extraction call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`

	// MaxAttempts is how many times a rate-limited call is retried.
	MaxAttempts int `yaml:"max_attempts" env:"LLM_MAX_ATTEMPTS" env-default:"3"`
}

// Timeout returns the per-call timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SchedulerConfig holds enrichment scheduler settings.
type SchedulerConfig struct {
	// Workers is the number of enrichment tasks that may run concurrently.
	Workers int `yaml:"workers" env:"SCHEDULER_WORKERS" env-default:"4"`

	// MaxRetries is how many times a failed enrichment is re-queued before
	// it is marked permanently failed.
	MaxRetries int `yaml:"max_retries" env:"SCHEDULER_MAX_RETRIES" env-default:"3"`

	// RetryBaseSeconds is the delay before the first retry; each subsequent
	// retry doubles it.
	RetryBaseSeconds int `yaml:"retry_base_seconds" env:"SCHEDULER_RETRY_BASE_SECONDS" env-default:"60"`
}

// RetryBase returns the initial retry delay as a duration.
func (c *SchedulerConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseSeconds) * time.Second
}

// ResolutionConfig holds shareholder resolution and tree construction settings.
type ResolutionConfig struct {
	// FilingWindow is how many recent filings are scanned per filing type.
	FilingWindow int `yaml:"filing_window" env:"RESOLUTION_FILING_WINDOW" env-default:"10"`

	// MaxDepth caps recursive ownership tree construction.
	MaxDepth int `yaml:"max_depth" env:"RESOLUTION_MAX_DEPTH" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD, API keys)
// must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler workers must be at least 1, got %d", c.Scheduler.Workers)
	}
	if c.Resolution.MaxDepth < 1 {
		return fmt.Errorf("resolution max_depth must be at least 1, got %d", c.Resolution.MaxDepth)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
