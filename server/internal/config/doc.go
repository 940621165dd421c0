// Package config loads the mock API configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - Listen            HTTP listen address (default ":8080")
//   - Auth.Header       header carrying the API key (default "x-api-key")
//   - Auth.KeyEnv       environment variable holding the expected key
//   - Dataset.Patients  number of generated patients (default 47)
//   - Dataset.Seed      generator seed; equal seeds give equal datasets
//   - Page              default and maximum /patients limit (5 and 20)
//   - Faults            probability and seed of injected 5xx responses
//   - RateLimit         per-key requests per second and burst
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
