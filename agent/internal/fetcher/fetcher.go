package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vitalscore/vitalscore/agent/internal/retry"
	"github.com/vitalscore/vitalscore/pkg/types"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Page is one decoded /patients response and the attempts it took.
type Page struct {
	types.PageResponse
	Attempts int
}

// Fetcher fetches single pages with retry.
type Fetcher struct {
	client   *http.Client
	endpoint string
	policy   retry.Policy
	sleep    retry.SleepFunc // injectable for tests
}

// New returns a Fetcher for {baseURL}/patients. client is expected to carry
// the API key (see transport.NewClient).
func New(client *http.Client, baseURL string, policy retry.Policy) (*Fetcher, error) {
	endpoint, err := url.JoinPath(baseURL, "patients")
	if err != nil {
		return nil, fmt.Errorf("fetcher: base url %q: %w", baseURL, err)
	}
	return &Fetcher{
		client:   client,
		endpoint: endpoint,
		policy:   policy,
		sleep:    retry.Sleep,
	}, nil
}

// FetchPage returns the given page, retrying retriable statuses.
// The returned error is always a *FetchError.
func (f *Fetcher) FetchPage(ctx context.Context, page, limit int) (*Page, error) {
	for attempt := 1; ; attempt++ {
		resp, status, err := f.get(ctx, page, limit)
		if err == nil {
			if attempt > 1 {
				slog.Info("fetcher: page recovered", "page", page, "attempts", attempt)
			}
			return &Page{PageResponse: *resp, Attempts: attempt}, nil
		}

		if !Retriable(status) {
			return nil, &FetchError{Page: page, Reason: ReasonTerminal, Status: status, Attempts: attempt, Err: err}
		}
		if f.policy.Last(attempt) {
			return nil, &FetchError{Page: page, Reason: ReasonExhausted, Status: status, Attempts: attempt, Err: err}
		}

		wait := f.policy.Delay(attempt)
		slog.Warn("fetcher: page fetch failed, will retry",
			"page", page,
			"status", status,
			"attempt", attempt,
			"retry_in", wait,
		)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, &FetchError{Page: page, Reason: ReasonTerminal, Status: status, Attempts: attempt, Err: err}
		}
	}
}

// get performs one GET. status is 0 when no response was received.
func (f *Fetcher) get(ctx context.Context, page, limit int) (*types.PageResponse, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(body))
	}

	// Data shadows the embedded field so an absent or null array is visible.
	var out struct {
		types.PageResponse
		Data *[]types.Patient `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode page: %w", err)
	}
	if out.Data == nil {
		return nil, resp.StatusCode, fmt.Errorf("decode page: %w: %s", ErrMissingData, snippet(body))
	}
	out.PageResponse.Data = *out.Data
	return &out.PageResponse, resp.StatusCode, nil
}

// snippet trims a response body for inclusion in an error message.
func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "…"
	}
	return string(body)
}
