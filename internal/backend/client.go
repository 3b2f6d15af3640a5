// Package backend is the REST plumbing shared by the diagnosis oracle,
// patient recognition and booking clients. It owns request shaping, the
// NetworkError/RejectionError taxonomy, tracing and latency observation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observer receives per-call outcomes. metrics.ConversationMetrics
// implements it.
type Observer interface {
	ObserveBackendCall(call, outcome string, seconds float64)
}

// Config holds configuration for the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
	Tracer     trace.Tracer
}

// Client issues JSON requests against the triage backend.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	tracer   trace.Tracer
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: BaseURL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("triage.internal.backend")
	}
	return &Client{baseURL: base, http: httpClient, observer: cfg.Observer, tracer: tracer}, nil
}

// Do sends method+path with an optional JSON body and decodes a JSON reply
// into out when out is non-nil. call names the operation for errors,
// spans and metrics.
func (c *Client) Do(ctx context.Context, call, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+call, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))
	defer span.End()

	start := time.Now()
	err := c.do(ctx, call, method, path, body, out)
	c.observe(call, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) do(ctx context.Context, call, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: %s: encode request: %w", call, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: %s: build request: %w", call, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Call: call, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Call: call, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectionError{Call: call, Status: resp.StatusCode, Detail: extractDetail(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: %s: decode response: %w", call, err)
	}
	return nil
}

func (c *Client) observe(call string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case IsNetwork(err):
		outcome = "network_error"
	case IsRejection(err):
		outcome = "rejected"
	default:
		outcome = "invalid_response"
	}
	c.observer.ObserveBackendCall(call, outcome, elapsed.Seconds())
}

// extractDetail pulls a human-readable reason from common error bodies:
// {"detail": "..."}, {"message": "..."}, {"error": "..."}.
func extractDetail(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, key := range []string{"detail", "message", "error"} {
		if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
