package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBaseURL        = "https://assessment.ksensetech.com/api"
	DefaultPageSize       = 10
	DefaultMaxAttempts    = 5
	DefaultBackoffBase    = 1 * time.Second
	DefaultPageDelay      = 200 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultDotEnv         = ".env"
	DefaultKeyHeader      = "x-api-key"
	DefaultKeyEnv         = "KSENSE_API_KEY"
)

// Config holds the agent configuration parsed from the `agent:` section of
// config.yaml. The `server:` key in the same file is ignored by the agent.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// BaseURL is the health-data API root; /patients and /submit-assessment
	// are resolved against it.
	BaseURL string `yaml:"base_url"`

	// PageSize is the limit sent with every /patients request.
	PageSize int `yaml:"page_size"`

	// MaxAttempts bounds both retry layers: HTTP attempts per page fetch and
	// phase attempts per page in the coordinator.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffBase is the escalation unit; the wait after attempt n is n × BackoffBase.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// PageDelay is the pause after each successfully fetched page 2..N.
	PageDelay time.Duration `yaml:"page_delay"`

	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// DotEnv is a .env file loaded into the environment before secrets are
	// resolved. A missing file is not an error.
	DotEnv string `yaml:"dotenv"`

	// Auth names the API key header and the environment variable holding the key.
	Auth AuthConfig `yaml:"auth"`

	// Submit controls whether the assessment is posted. Defaults to true.
	Submit bool `yaml:"submit"`

	// Report configures the Prometheus textfile run report.
	Report ReportConfig `yaml:"report"`

	// Notify lists webhooks that receive the run summary.
	Notify NotifyConfig `yaml:"notify"`
}

// AuthConfig specifies how the API key is sent.
type AuthConfig struct {
	// Header is the HTTP header the key is sent in. Defaults to "x-api-key".
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultKeyHeader
}

// ReportConfig configures the run report file.
type ReportConfig struct {
	// Path is where the Prometheus text-format report is written, typically
	// inside a node_exporter textfile collector directory. Empty disables it.
	Path string `yaml:"path"`
}

// NotifyConfig holds webhook targets for the run summary.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// An empty path yields the defaults. Missing optional fields are filled with
// defaults before validation.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// dotenvKeys records the variables LoadDotEnv set, so a later load may
// update them while still leaving the real environment alone.
var dotenvKeys = struct {
	sync.Mutex
	set map[string]bool
}{set: make(map[string]bool)}

// LoadDotEnv loads variables from the .env file at path into the process
// environment. Variables set outside any .env file are not overridden;
// variables an earlier call loaded are updated, so calling it again after
// the file changes picks up edits. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}

	dotenvKeys.Lock()
	defer dotenvKeys.Unlock()
	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists && !dotenvKeys.set[k] {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("config: set %s from %s: %w", k, path, err)
		}
		dotenvKeys.set[k] = true
	}
	return nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			BaseURL:        DefaultBaseURL,
			PageSize:       DefaultPageSize,
			MaxAttempts:    DefaultMaxAttempts,
			BackoffBase:    DefaultBackoffBase,
			PageDelay:      DefaultPageDelay,
			RequestTimeout: DefaultRequestTimeout,
			DotEnv:         DefaultDotEnv,
			Auth: AuthConfig{
				Header: DefaultKeyHeader,
				KeyEnv: DefaultKeyEnv,
			},
			Submit: true,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.BaseURL == "" {
		return fmt.Errorf("agent.base_url is required")
	}
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("agent.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent.base_url %q: scheme must be http or https", a.BaseURL)
	}
	if a.PageSize <= 0 {
		return fmt.Errorf("agent.page_size must be positive")
	}
	if a.MaxAttempts <= 0 {
		return fmt.Errorf("agent.max_attempts must be positive")
	}
	if a.BackoffBase < 0 {
		return fmt.Errorf("agent.backoff_base must not be negative")
	}
	if a.PageDelay < 0 {
		return fmt.Errorf("agent.page_delay must not be negative")
	}
	if a.RequestTimeout <= 0 {
		return fmt.Errorf("agent.request_timeout must be positive")
	}
	for i, wh := range a.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}
