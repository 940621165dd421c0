package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultListen       = ":8080"
	DefaultKeyHeader    = "x-api-key"
	DefaultKeyEnv       = "KSENSE_API_KEY"
	DefaultPatients     = 47
	DefaultSeed         = 1
	DefaultPageLimit    = 5
	DefaultMaxPageLimit = 20
	DefaultFaultRate    = 0.08
	DefaultRPS          = 10
	DefaultBurst        = 5
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all mock API settings.
type ServerConfig struct {
	// Listen is the HTTP listen address (default ":8080").
	Listen string `yaml:"listen"`

	// Auth configures API key checking on every route except /healthz.
	Auth AuthConfig `yaml:"auth"`

	// Dataset controls the generated patient records.
	Dataset DatasetConfig `yaml:"dataset"`

	// Page bounds the /patients limit parameter.
	Page PageConfig `yaml:"page"`

	// Faults injects transient 5xx responses on /patients.
	Faults FaultConfig `yaml:"faults"`

	// RateLimit is the per-key token bucket; exceeding it returns 429.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Header is the HTTP header to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. An unset variable disables authentication.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultKeyHeader
}

// DatasetConfig sizes and seeds the patient dataset.
type DatasetConfig struct {
	Patients int   `yaml:"patients"`
	Seed     int64 `yaml:"seed"`
}

// PageConfig bounds pagination.
type PageConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// FaultConfig injects 500/502/503 responses with probability Rate.
type FaultConfig struct {
	Rate float64 `yaml:"rate"`
	Seed int64   `yaml:"seed"`
}

// RateLimitConfig is a token bucket per API key. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Load reads and parses the config file at path, returning the server
// configuration. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: DefaultListen,
			Auth: AuthConfig{
				Header: DefaultKeyHeader,
				KeyEnv: DefaultKeyEnv,
			},
			Dataset: DatasetConfig{
				Patients: DefaultPatients,
				Seed:     DefaultSeed,
			},
			Page: PageConfig{
				DefaultLimit: DefaultPageLimit,
				MaxLimit:     DefaultMaxPageLimit,
			},
			Faults: FaultConfig{
				Rate: DefaultFaultRate,
				Seed: DefaultSeed,
			},
			RateLimit: RateLimitConfig{
				RPS:   DefaultRPS,
				Burst: DefaultBurst,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if s.Dataset.Patients < 0 {
		return fmt.Errorf("server.dataset.patients must not be negative")
	}
	if s.Page.DefaultLimit <= 0 {
		return fmt.Errorf("server.page.default_limit must be positive")
	}
	if s.Page.MaxLimit < s.Page.DefaultLimit {
		return fmt.Errorf("server.page.max_limit %d is below default_limit %d", s.Page.MaxLimit, s.Page.DefaultLimit)
	}
	if s.Faults.Rate < 0 || s.Faults.Rate > 1 {
		return fmt.Errorf("server.faults.rate %v is out of range [0, 1]", s.Faults.Rate)
	}
	if s.RateLimit.RPS < 0 {
		return fmt.Errorf("server.rate_limit.rps must not be negative")
	}
	if s.RateLimit.RPS > 0 && s.RateLimit.Burst <= 0 {
		return fmt.Errorf("server.rate_limit.burst must be positive when rps is set")
	}
	return nil
}
