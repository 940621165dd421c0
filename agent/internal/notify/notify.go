// Package notify posts a run summary to Slack, Teams, or generic HTTP
// webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitalscore/vitalscore/agent/internal/config"
)

const defaultTimeout = 10 * time.Second

// Style is how an outcome is presented in chat payloads.
type Style struct {
	Label string // Slack prefix, e.g. "[OK]"
	Color string // Teams themeColor, hex without '#'
}

// defaultStyle is used when a Summary carries no Style.
var defaultStyle = Style{Label: "[RUN]", Color: "00D4FF"}

// Summary is the part of a run that gets announced.
type Summary struct {
	RunID             string `json:"run_id"`
	Outcome           string `json:"outcome"`
	Patients          int    `json:"patients"`
	Expected          int    `json:"expected,omitempty"`
	HighRisk          int    `json:"high_risk"`
	Fever             int    `json:"fever"`
	DataQualityIssues int    `json:"data_quality_issues"`
	Submitted         bool   `json:"submitted"`
	SubmitOK          bool   `json:"submit_ok"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`

	// Style is chosen by the caller per outcome.
	Style Style `json:"-"`
}

func (s Summary) style() Style {
	if s.Style == (Style{}) {
		return defaultStyle
	}
	return s.Style
}

// Notifier delivers summaries to the configured webhooks.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

// New returns a Notifier for hooks. A nil client gets a default one.
func New(hooks []config.WebhookConfig, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{webhooks: hooks, client: client}
}

// Send posts s to every webhook whose URL resolves.
// Errors are logged but do not affect the caller.
func (n *Notifier) Send(ctx context.Context, s Summary) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			slog.Debug("notify: webhook url unset, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(ctx, url, s)
		case "teams":
			err = n.sendTeams(ctx, url, s)
		case "http":
			err = n.sendHTTP(ctx, url, s)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "run_id", s.RunID, "err", err)
		} else {
			slog.Debug("notify: webhook delivered", "type", wh.Type, "run_id", s.RunID)
		}
	}
}

func (n *Notifier) sendSlack(ctx context.Context, url string, s Summary) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", s.style().Label, text(s)),
	})
	return n.post(ctx, url, body)
}

func (n *Notifier) sendTeams(ctx context.Context, url string, s Summary) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": s.style().Color,
		"summary":    "vitalscore run " + s.Outcome,
		"title":      fmt.Sprintf("Vitalscore run %s", s.Outcome),
		"text":       text(s),
	}
	body, _ := json.Marshal(payload)
	return n.post(ctx, url, body)
}

func (n *Notifier) sendHTTP(ctx context.Context, url string, s Summary) error {
	body, _ := json.Marshal(map[string]interface{}{"summary": s})
	return n.post(ctx, url, body)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// text is the human-readable line shared by the chat payloads.
func text(s Summary) string {
	msg := fmt.Sprintf("run %s: %d patients", s.RunID, s.Patients)
	if s.Expected > 0 {
		msg += fmt.Sprintf(" of %d", s.Expected)
	}
	msg += fmt.Sprintf(", %d high risk, %d fever, %d data quality issues",
		s.HighRisk, s.Fever, s.DataQualityIssues)
	switch {
	case !s.Submitted:
		msg += "; not submitted"
	case s.SubmitOK:
		msg += "; submitted"
	default:
		msg += "; submission failed"
	}
	if s.Error != "" {
		msg += ": " + s.Error
	}
	return msg
}
