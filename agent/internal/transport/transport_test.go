package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/vitalscore/vitalscore/agent/internal/config"
)

func TestNewClient_InjectsHeaders(t *testing.T) {
	t.Setenv("TEST_TRANSPORT_KEY", "ak_test")

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(config.AgentConfig{
		Auth: config.AuthConfig{Header: "x-api-key", KeyEnv: "TEST_TRANSPORT_KEY"},
	})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if v := got.Get("x-api-key"); v != "ak_test" {
		t.Errorf("x-api-key = %q, want ak_test", v)
	}
	if _, err := uuid.Parse(got.Get(RequestIDHeader)); err != nil {
		t.Errorf("%s = %q is not a uuid: %v", RequestIDHeader, got.Get(RequestIDHeader), err)
	}
	if got.Get("User-Agent") != userAgent {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
}

func TestNewClient_KeepsCallerRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err := NewClient(config.AgentConfig{}).Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if got != "fixed-id" {
		t.Errorf("%s = %q, want fixed-id", RequestIDHeader, got)
	}
}

func TestNewClient_NoKeyNoHeader(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Api-Key"]
	}))
	defer srv.Close()

	resp, err := NewClient(config.AgentConfig{}).Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if present {
		t.Error("x-api-key header sent without a configured key")
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	if c := NewClient(config.AgentConfig{}); c.Timeout != config.DefaultRequestTimeout {
		t.Errorf("client.Timeout = %v, want %v", c.Timeout, config.DefaultRequestTimeout)
	}
}
