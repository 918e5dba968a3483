package relogs

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Default configuration values.
const (
	DefaultIngestionEndpoint  = "https://pipebase.io/ingest"
	DefaultIngestInterval     = 1000 * time.Millisecond
	DefaultFlushTimeout       = 10 * time.Second
	DefaultFlushCheckInterval = 500 * time.Millisecond
)

// Config holds the client configuration.
type Config struct {
	// WorkspaceID identifies the destination workspace (required)
	WorkspaceID string

	// APIKey authenticates uploads (required)
	APIKey string

	// DefaultTable receives events tracked without a table and all captured
	// log records. Required when CaptureLogs is set.
	DefaultTable string

	// CaptureLogs installs Interceptor (slog/log capture by default) on New
	CaptureLogs bool

	// SuppressCapturedOutput stops captured records from also reaching the
	// original log handler
	SuppressCapturedOutput bool

	// IngestionEndpoint is the base URL of the ingestion API
	// (default: https://pipebase.io/ingest)
	IngestionEndpoint string

	// IngestInterval is the flush cadence (default: 1s)
	IngestInterval time.Duration

	// FlushTimeout bounds the shutdown drain (default: 10s)
	FlushTimeout time.Duration

	// FlushCheckInterval is the drain polling cadence (default: 500ms)
	FlushCheckInterval time.Duration

	// Transport delivers batches. Defaults to the HTTP ingestion transport.
	Transport Transport

	// Interceptor is installed when CaptureLogs is set. Defaults to capture.New.
	Interceptor Interceptor

	// Logger receives the client's own diagnostics (default: slog.Default()
	// as of New, before any log capture is installed)
	Logger *slog.Logger

	// Clock drives the flush timer and drain polling (default: real clock)
	Clock clockwork.Clock

	// Meter creates the client's metric instruments (default: global provider)
	Meter otelmetric.Meter
}

// NewConfig builds a validated Config with defaults applied.
func NewConfig(workspaceID, apiKey, defaultTable string, captureLogs, suppressCapturedOutput bool) (Config, error) {
	cfg := Config{
		WorkspaceID:            workspaceID,
		APIKey:                 apiKey,
		DefaultTable:           defaultTable,
		CaptureLogs:            captureLogs,
		SuppressCapturedOutput: suppressCapturedOutput,
	}.withDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks that required fields are set and values are valid.
func (c *Config) validate() error {
	if c.WorkspaceID == "" {
		return &ConfigurationError{Field: "WorkspaceID", Err: ErrMissingCredentials}
	}
	if c.APIKey == "" {
		return &ConfigurationError{Field: "APIKey", Err: ErrMissingCredentials}
	}
	if c.CaptureLogs && c.DefaultTable == "" {
		return &ConfigurationError{Field: "DefaultTable", Err: ErrDefaultTableRequired}
	}

	// The endpoint only matters for the built-in HTTP transport
	if c.Transport == nil {
		u, err := url.Parse(c.IngestionEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigurationError{Field: "IngestionEndpoint", Err: ErrInvalidEndpoint}
		}
	}

	return nil
}

// withDefaults returns a copy of the config with default values applied.
// Non-positive durations are treated as unset.
func (c Config) withDefaults() Config {
	cfg := c

	if cfg.IngestionEndpoint == "" {
		cfg.IngestionEndpoint = DefaultIngestionEndpoint
	}
	cfg.IngestionEndpoint = strings.TrimSuffix(cfg.IngestionEndpoint, "/")

	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = DefaultIngestInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	if cfg.FlushCheckInterval <= 0 {
		cfg.FlushCheckInterval = DefaultFlushCheckInterval
	}

	return cfg
}

// logValue renders the config for diagnostics with the API key masked.
func (c Config) logValue() slog.Value {
	apiKey := ""
	if c.APIKey != "" {
		apiKey = "****"
	}

	return slog.GroupValue(
		slog.String("workspace_id", c.WorkspaceID),
		slog.String("api_key", apiKey),
		slog.String("default_table", c.DefaultTable),
		slog.Bool("capture_logs", c.CaptureLogs),
		slog.Bool("suppress_captured_output", c.SuppressCapturedOutput),
		slog.String("ingestion_endpoint", c.IngestionEndpoint),
		slog.Duration("ingest_interval", c.IngestInterval),
		slog.Duration("flush_timeout", c.FlushTimeout),
		slog.Duration("flush_check_interval", c.FlushCheckInterval),
	)
}
