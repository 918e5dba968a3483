package config

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sink != SinkHTTP {
		t.Errorf("Sink = %q, want %q", cfg.Sink, SinkHTTP)
	}
	if cfg.Client.DefaultTable != "logs" {
		t.Errorf("DefaultTable = %q, want logs", cfg.Client.DefaultTable)
	}
	if cfg.Client.IngestInterval != time.Second {
		t.Errorf("IngestInterval = %v, want 1s", cfg.Client.IngestInterval)
	}
	if cfg.Client.FlushTimeout != 10*time.Second {
		t.Errorf("FlushTimeout = %v, want 10s", cfg.Client.FlushTimeout)
	}
	if cfg.NATS.URL != "nats://localhost:4222" || cfg.NATS.Codec != "json" {
		t.Errorf("NATS = %+v", cfg.NATS)
	}
	if cfg.NATS.Stream.Name != "RELOGS_TELEMETRY" {
		t.Errorf("NATS stream = %q", cfg.NATS.Stream.Name)
	}
	if cfg.Archive.Format != "parquet" || cfg.Archive.S3.Prefix != "telemetry" {
		t.Errorf("Archive = %+v", cfg.Archive)
	}
	if cfg.SQL.Dialect != "sqlite" {
		t.Errorf("SQL.Dialect = %q", cfg.SQL.Dialect)
	}
	if cfg.Gateway.Addr != ":8085" || !cfg.Gateway.RateLimit.Enabled {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RELOGS_SINK", "nats")
	t.Setenv("RELOGS_WORKSPACE_ID", "ws-1")
	t.Setenv("RELOGS_API_KEY", "secret")
	t.Setenv("RELOGS_FLUSH_TIMEOUT", "3s")
	t.Setenv("RELOGS_HTTP_MAX_RETRIES", "2")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("NATS_CODEC", "protobuf")
	t.Setenv("NATS_STREAM_SUBJECTS", "telemetry.>,audit.>")
	t.Setenv("ARCHIVE_S3_BUCKET", "archive")
	t.Setenv("SQL_DIALECT", "postgres")
	t.Setenv("GATEWAY_ADDR", ":9999")
	t.Setenv("GATEWAY_RATE_LIMIT_BURST_SIZE", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sink != SinkNATS {
		t.Errorf("Sink = %q", cfg.Sink)
	}
	if cfg.Client.WorkspaceID != "ws-1" || cfg.Client.APIKey != "secret" {
		t.Errorf("Client = %+v", cfg.Client)
	}
	if cfg.Client.FlushTimeout != 3*time.Second {
		t.Errorf("FlushTimeout = %v", cfg.Client.FlushTimeout)
	}
	if cfg.HTTP.MaxRetries != 2 {
		t.Errorf("HTTP.MaxRetries = %d", cfg.HTTP.MaxRetries)
	}
	if cfg.NATS.URL != "nats://broker:4222" || cfg.NATS.Codec != "protobuf" {
		t.Errorf("NATS = %+v", cfg.NATS)
	}
	if len(cfg.NATS.Stream.Subjects) != 2 {
		t.Errorf("NATS subjects = %v", cfg.NATS.Stream.Subjects)
	}
	if cfg.Archive.S3.Bucket != "archive" {
		t.Errorf("Archive bucket = %q", cfg.Archive.S3.Bucket)
	}
	if cfg.SQL.Dialect != "postgres" {
		t.Errorf("SQL.Dialect = %q", cfg.SQL.Dialect)
	}
	if cfg.Gateway.Addr != ":9999" || cfg.Gateway.RateLimit.BurstSize != 7 {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}

	rc := cfg.RelogsConfig()
	if rc.WorkspaceID != "ws-1" || rc.FlushTimeout != 3*time.Second || rc.DefaultTable != "logs" {
		t.Errorf("RelogsConfig() = %+v", rc)
	}
}

func TestLoad_UnknownSink(t *testing.T) {
	t.Setenv("RELOGS_SINK", "kafka")

	if _, err := Load(); !errors.Is(err, ErrUnknownSink) {
		t.Errorf("Load() error = %v, want ErrUnknownSink", err)
	}
}

func TestLogValue_MasksSecrets(t *testing.T) {
	cfg := Config{Sink: SinkSQL}
	cfg.Client.APIKey = "super-secret"
	cfg.SQL.Password = "hunter2"

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config", "config", cfg)

	out := buf.String()
	if strings.Contains(out, "super-secret") || strings.Contains(out, "hunter2") {
		t.Errorf("secrets leaked: %s", out)
	}
	if !strings.Contains(out, "config.client.api_key=****") {
		t.Errorf("masked key missing: %s", out)
	}
}
