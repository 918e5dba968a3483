// Package config loads the relogs agent configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/SebastienMelki/relogs/internal/archive"
	"github.com/SebastienMelki/relogs/internal/gateway"
	"github.com/SebastienMelki/relogs/internal/nats"
	"github.com/SebastienMelki/relogs/internal/sqlstore"
	"github.com/SebastienMelki/relogs/pkg/relogs"
)

// Sink names.
const (
	SinkHTTP = "http"
	SinkNATS = "nats"
	SinkS3   = "s3"
	SinkSQL  = "sql"
)

// Sinks lists the supported sinks.
var Sinks = []string{SinkHTTP, SinkNATS, SinkS3, SinkSQL}

// ErrUnknownSink is returned for an unsupported RELOGS_SINK value.
var ErrUnknownSink = errors.New("unknown sink")

// Config holds all agent configuration.
type Config struct {
	// LogLevel is the log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is the log format (json, text, dev)
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// ServiceName scopes the agent's metrics
	ServiceName string `env:"SERVICE_NAME" envDefault:"relogs-agent"`

	// Sink selects the transport (http, nats, s3, sql)
	Sink string `env:"RELOGS_SINK" envDefault:"http"`

	// Client configuration
	Client ClientConfig `envPrefix:"RELOGS_"`

	// HTTP sink configuration
	HTTP HTTPSinkConfig `envPrefix:"RELOGS_HTTP_"`

	// NATS sink configuration
	NATS NATSSinkConfig `envPrefix:"NATS_"`

	// S3 archive sink configuration
	Archive archive.Config `envPrefix:"ARCHIVE_"`

	// SQL sink configuration
	SQL sqlstore.Config `envPrefix:"SQL_"`

	// Local ingest gateway configuration
	Gateway gateway.Config `envPrefix:"GATEWAY_"`
}

// ClientConfig mirrors relogs.Config for the environment.
type ClientConfig struct {
	WorkspaceID            string        `env:"WORKSPACE_ID"`
	APIKey                 string        `env:"API_KEY"`
	DefaultTable           string        `env:"DEFAULT_TABLE" envDefault:"logs"`
	CaptureLogs            bool          `env:"CAPTURE_LOGS" envDefault:"false"`
	SuppressCapturedOutput bool          `env:"SUPPRESS_CAPTURED_OUTPUT" envDefault:"false"`
	IngestionEndpoint      string        `env:"INGESTION_ENDPOINT" envDefault:"https://pipebase.io/ingest"`
	IngestInterval         time.Duration `env:"INGEST_INTERVAL" envDefault:"1s"`
	FlushTimeout           time.Duration `env:"FLUSH_TIMEOUT" envDefault:"10s"`
	FlushCheckInterval     time.Duration `env:"FLUSH_CHECK_INTERVAL" envDefault:"500ms"`
}

// HTTPSinkConfig configures the HTTP ingestion transport.
type HTTPSinkConfig struct {
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"0"`
	Gzip       bool          `env:"GZIP" envDefault:"false"`
}

// NATSSinkConfig configures the NATS transport.
type NATSSinkConfig struct {
	nats.Config

	// Codec is the batch encoding (json or protobuf)
	Codec string `env:"CODEC" envDefault:"json"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if !slices.Contains(Sinks, c.Sink) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrUnknownSink, c.Sink, Sinks)
	}
	return nil
}

// RelogsConfig converts the client settings into a relogs.Config. The
// transport and interceptor are left for the caller to fill.
func (c *Config) RelogsConfig() relogs.Config {
	return relogs.Config{
		WorkspaceID:            c.Client.WorkspaceID,
		APIKey:                 c.Client.APIKey,
		DefaultTable:           c.Client.DefaultTable,
		CaptureLogs:            c.Client.CaptureLogs,
		SuppressCapturedOutput: c.Client.SuppressCapturedOutput,
		IngestionEndpoint:      c.Client.IngestionEndpoint,
		IngestInterval:         c.Client.IngestInterval,
		FlushTimeout:           c.Client.FlushTimeout,
		FlushCheckInterval:     c.Client.FlushCheckInterval,
	}
}

// LogValue renders the config with secrets masked.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.String("log_format", c.LogFormat),
		slog.String("sink", c.Sink),
		slog.Group("client",
			slog.String("workspace_id", c.Client.WorkspaceID),
			slog.String("api_key", mask(c.Client.APIKey)),
			slog.String("default_table", c.Client.DefaultTable),
			slog.Bool("capture_logs", c.Client.CaptureLogs),
			slog.String("ingestion_endpoint", c.Client.IngestionEndpoint),
			slog.Duration("ingest_interval", c.Client.IngestInterval),
			slog.Duration("flush_timeout", c.Client.FlushTimeout),
		),
		slog.Group("gateway",
			slog.Bool("enabled", c.Gateway.Enabled),
			slog.String("addr", c.Gateway.Addr),
		),
		slog.String("nats_url", c.NATS.URL),
		slog.String("archive_bucket", c.Archive.S3.Bucket),
		slog.String("archive_secret_access_key", mask(c.Archive.S3.SecretAccessKey)),
		slog.String("sql_dialect", c.SQL.Dialect),
		slog.String("sql_password", mask(c.SQL.Password)),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
