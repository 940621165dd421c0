// Package transport builds the HTTP client shared by the fetcher and the
// submitter. Every request leaving it carries the API key header and an
// X-Request-Id so upstream logs can be correlated with ours.
package transport

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vitalscore/vitalscore/agent/internal/config"
)

// RequestIDHeader is set on every outgoing request that does not already carry one.
const RequestIDHeader = "X-Request-Id"

const userAgent = "vitalscore-agent/1.0"

// apiKeyRoundTripper injects the API key and request ID into every outgoing request.
type apiKeyRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *apiKeyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.key != "" {
		req.Header.Set(t.header, t.key)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

// NewClient returns an http.Client that authenticates with the key named by
// cfg.Auth and times out each round trip after cfg.RequestTimeout.
// An empty key is allowed; the upstream API decides what to do with it.
func NewClient(cfg config.AgentConfig) *http.Client {
	return Wrap(http.DefaultTransport, cfg)
}

// Wrap is NewClient over an explicit base RoundTripper.
func Wrap(base http.RoundTripper, cfg config.AgentConfig) *http.Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return &http.Client{
		Transport: &apiKeyRoundTripper{
			base:   base,
			header: cfg.Auth.EffectiveHeader(),
			key:    cfg.Auth.Key(),
		},
		Timeout: timeout,
	}
}
