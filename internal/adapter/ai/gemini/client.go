// Package gemini talks to the Gemini generateContent REST endpoint and turns
// its free-text replies into interview questions and feedback reports.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const (
	provider         = "gemini"
	opGenerate       = "generate_content"
	maxResponseBytes = 4 << 20
	snippetBytes     = 512
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client sends a single prompt to the configured endpoint. It performs no
// retries; see Orchestrator.
type Client struct {
	apiURL string
	apiKey string
	hc     *http.Client
}

// New constructs a Client from configuration. Missing credentials are not an
// error here; they are reported on each Call.
func New(cfg config.Config) *Client {
	timeout := cfg.GeminiTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiURL: strings.TrimSpace(cfg.GeminiAPIURL),
		apiKey: strings.TrimSpace(cfg.GeminiAPIKey),
		hc:     &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Configured reports whether both endpoint and key are present.
func (c *Client) Configured() bool { return c.apiURL != "" && c.apiKey != "" }

// Call posts prompt and returns the first candidate's first text part.
// Every non-nil error is a *ClassifiedError.
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if c.apiKey == "" {
		lg.Error("gemini api key missing", slog.String("provider", provider))
		return "", classified(FailureConfiguration, 0, "GEMINI_API_KEY missing", nil)
	}
	if c.apiURL == "" {
		lg.Error("gemini api url missing", slog.String("provider", provider))
		return "", classified(FailureConfiguration, 0, "GEMINI_API_URL missing", nil)
	}
	endpoint, err := c.endpoint()
	if err != nil {
		return "", classified(FailureConfiguration, 0, "invalid GEMINI_API_URL", err)
	}

	b, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", classified(FailureBadRequest, 0, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", classified(FailureConfiguration, 0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.AIRequestDuration.WithLabelValues(provider, opGenerate).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureCancelled.String()).Inc()
			return "", classified(FailureCancelled, 0, "request cancelled", ctx.Err())
		}
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureTransient.String()).Inc()
		lg.Warn("gemini request failed", slog.String("provider", provider), slog.String("endpoint", c.apiURL), slog.Any("error", redact(err, c.apiKey)))
		return "", classified(FailureTransient, 0, "request failed", redact(err, c.apiKey))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureTransient.String()).Inc()
		return "", classified(FailureTransient, resp.StatusCode, "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, class.String()).Inc()
		attrs := []any{
			slog.String("provider", provider),
			slog.Int("status", resp.StatusCode),
			slog.String("class", class.String()),
			slog.String("body", snippet(body)),
		}
		if class == FailureServerError {
			lg.Error("gemini non-2xx", attrs...)
		} else {
			lg.Warn("gemini 4xx", attrs...)
		}
		return "", classified(class, resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureTransient.String()).Inc()
		lg.Error("gemini decode error", slog.String("provider", provider), slog.Any("error", err), slog.String("body", snippet(body)))
		return "", classified(FailureTransient, resp.StatusCode, "decode response", err)
	}
	if len(out.Candidates) == 0 {
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureTransient.String()).Inc()
		lg.Error("gemini response has no candidates", slog.String("provider", provider), slog.String("body", snippet(body)))
		return "", classified(FailureTransient, resp.StatusCode, "invalid response structure: no candidates", nil)
	}
	parts := out.Candidates[0].Content.Parts
	if len(parts) == 0 || strings.TrimSpace(parts[0].Text) == "" {
		observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, FailureTransient.String()).Inc()
		lg.Error("gemini response has empty text", slog.String("provider", provider))
		return "", classified(FailureTransient, resp.StatusCode, "empty text in response", nil)
	}

	observability.AIRequestsTotal.WithLabelValues(provider, opGenerate, "ok").Inc()
	lg.Debug("gemini response received", slog.String("provider", provider), slog.Int("chars", len(parts[0].Text)))
	return parts[0].Text, nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("url must be absolute")
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func classifyStatus(status int) FailureClass {
	switch {
	case status == http.StatusUnauthorized:
		return FailureUnauthorized
	case status == http.StatusBadRequest:
		return FailureBadRequest
	case status >= 400 && status < 500:
		return FailureClientError
	case status >= 500:
		return FailureServerError
	default:
		// 1xx/3xx that survived redirects; nothing usable came back.
		return FailureTransient
	}
}

func snippet(b []byte) string {
	if len(b) > snippetBytes {
		b = b[:snippetBytes]
	}
	return string(b)
}

// redact strips the API key from transport errors, which embed the full URL.
func redact(err error, key string) error {
	if err == nil || key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
