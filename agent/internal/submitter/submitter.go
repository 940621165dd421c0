package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vitalscore/vitalscore/pkg/risk"
)

const maxBodyBytes = 1 << 20

// Ack is the decoded 2xx response of the submit endpoint.
type Ack struct {
	Status  int
	Success bool
	Message string

	// Results is the grading block of the response, kept raw.
	Results json.RawMessage

	// Body is the full response body.
	Body []byte
}

// SubmissionError is returned for a non-2xx response.
type SubmissionError struct {
	Status int
	Body   []byte
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit assessment: unexpected status %d: %s", e.Status, bytes.TrimSpace(e.Body))
}

// Submitter posts assessments.
type Submitter struct {
	client   *http.Client
	endpoint string
}

// New returns a Submitter for {baseURL}/submit-assessment. client is
// expected to carry the API key (see transport.NewClient).
func New(client *http.Client, baseURL string) (*Submitter, error) {
	endpoint, err := url.JoinPath(baseURL, "submit-assessment")
	if err != nil {
		return nil, fmt.Errorf("submitter: base url %q: %w", baseURL, err)
	}
	return &Submitter{client: client, endpoint: endpoint}, nil
}

// Submit posts a exactly once. Transport failures are wrapped; non-2xx responses
// return *SubmissionError.
func (s *Submitter) Submit(ctx context.Context, a risk.Assessment) (*Ack, error) {
	body, err := json.Marshal(a.Request())
	if err != nil {
		return nil, fmt.Errorf("submit assessment: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("submit assessment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Info("submitter: posting assessment",
		"high_risk", len(a.HighRisk),
		"fever", len(a.Fever),
		"data_quality_issues", len(a.DataQualityIssues),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit assessment: http post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("submit assessment: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SubmissionError{Status: resp.StatusCode, Body: respBody}
	}

	ack := &Ack{Status: resp.StatusCode, Body: respBody}
	var decoded struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// The submission was accepted; an unexpected body shape is not a failure.
		slog.Warn("submitter: response is not the expected JSON", "err", err)
		return ack, nil
	}
	ack.Success = decoded.Success
	ack.Message = decoded.Message
	ack.Results = decoded.Results
	return ack, nil
}
