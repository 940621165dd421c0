// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` section; the `server:` section belongs to
//     the mock API binary and is ignored here
//   - AgentConfig: base_url, page_size, max_attempts, backoff_base,
//     page_delay, request_timeout, dotenv, auth, submit, report, notify
//   - AuthConfig: header and key_env; Key() resolves the API key from the
//     environment so the secret never lives in YAML
//   - WebhookConfig: type (slack|teams|http) and url_env
//
// Load(path) applies defaults (10 per page, 5 attempts, 1s backoff base,
// 200ms page delay, 10s request timeout), unmarshals the YAML over them,
// then validates. An empty path returns the defaults.
//
// LoadDotEnv(path) populates the environment from a .env file via godotenv
// before secrets are resolved.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. Bursts of events from a single save
// are coalesced, and the watch is re-added after atomic-save renames.
package config
