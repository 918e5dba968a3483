// Package httptransport delivers batches to the HTTP ingestion API.
package httptransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// StatusNoResponse is returned as the status when no HTTP response arrived.
const StatusNoResponse = -1

// DefaultTimeout bounds a single request when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

var (
	// ErrClientStatus is wrapped for 4xx responses, which are never retried.
	ErrClientStatus = errors.New("httptransport: client error")

	// ErrServerStatus is wrapped for 5xx and other non-2xx responses.
	ErrServerStatus = errors.New("httptransport: server error")
)

// Config configures the HTTP transport.
type Config struct {
	// Endpoint is the ingestion base URL, without the /v1 suffix
	Endpoint string

	// WorkspaceID is the first path segment after /v1
	WorkspaceID string

	// APIKey is sent as X-API-KEY
	APIKey string

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration

	// MaxRetries is how many times a 5xx or network failure is retried
	// (default: 0, one attempt)
	MaxRetries int

	// Gzip compresses request bodies
	Gzip bool

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Transport posts one JSON array per batch.
type Transport struct {
	client     *http.Client
	endpoint   string
	workspace  string
	apiKey     string
	maxRetries int
	gzip       bool
	logger     *slog.Logger
}

// New creates a Transport. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		client:     client,
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		workspace:  cfg.WorkspaceID,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		gzip:       cfg.Gzip,
		logger:     logger.With("transport", "http"),
	}
}

// URL returns the ingestion URL for table.
func (t *Transport) URL(table string) string {
	return fmt.Sprintf("%s/v1/%s/%s?expand=true",
		t.endpoint, url.PathEscape(t.workspace), url.PathEscape(table))
}

// Send posts batch to the table's ingestion URL and returns the last HTTP
// status, or StatusNoResponse when no response was received. An empty batch
// sends nothing and reports 0.
func (t *Transport) Send(ctx context.Context, table string, batch []any) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	body, err := t.encode(batch)
	if err != nil {
		return StatusNoResponse, err
	}

	target := t.URL(table)
	requestID := requestID()

	status := StatusNoResponse
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			delay := exponentialBackoff(attempt)
			t.logger.Debug("retrying batch",
				"table", table,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return status, ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err = t.post(ctx, target, requestID, body)
		if err == nil {
			return status, nil
		}
		lastErr = err

		if errors.Is(err, ErrClientStatus) {
			return status, err
		}
		if ctx.Err() != nil {
			return status, lastErr
		}
	}

	return status, lastErr
}

func (t *Transport) post(ctx context.Context, target, requestID string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return StatusNoResponse, fmt.Errorf("httptransport: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", t.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return StatusNoResponse, fmt.Errorf("httptransport: request failed: %w", err)
	}

	// Drain to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrClientStatus, resp.StatusCode)
	default:
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrServerStatus, resp.StatusCode)
	}
}

func (t *Transport) encode(batch []any) ([]byte, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("httptransport: marshal batch: %w", err)
	}
	if !t.gzip {
		return raw, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("httptransport: compress batch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("httptransport: compress batch: %w", err)
	}
	return buf.Bytes(), nil
}

// requestID returns a time-ordered id, falling back to a random one.
func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// exponentialBackoff returns a fully jittered delay of up to
// 100ms * 2^attempt, capped at 10s.
func exponentialBackoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 10 * time.Second
	)

	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	return time.Duration(rand.Float64() * delay)
}
