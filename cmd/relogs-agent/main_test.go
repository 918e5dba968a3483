package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/SebastienMelki/relogs/internal/config"
	"github.com/SebastienMelki/relogs/internal/gateway"
	"github.com/SebastienMelki/relogs/pkg/relogs"
	"github.com/SebastienMelki/relogs/pkg/relogs/capture"
)

type captureTransport struct {
	mu      sync.Mutex
	batches map[string][]any
}

func (c *captureTransport) Send(_ context.Context, table string, batch []any) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batches == nil {
		c.batches = make(map[string][]any)
	}
	c.batches[table] = append(c.batches[table], batch...)
	return 200, nil
}

func TestTrackLines(t *testing.T) {
	transport := &captureTransport{}
	client, err := relogs.New(relogs.Config{
		WorkspaceID: "ws",
		APIKey:      "k",
		Transport:   transport,
	})
	if err != nil {
		t.Fatalf("relogs.New: %v", err)
	}

	input := strings.Join([]string{
		`{"level":"info","msg":"started"}`,
		``,
		`plain text line`,
		`[1,2]`,
	}, "\n")

	if err := trackLines(strings.NewReader(input), "stdin", client, slog.Default()); err != nil {
		t.Fatalf("trackLines: %v", err)
	}
	if !client.End(context.Background()) {
		t.Fatal("End() should reach quiescence")
	}

	got := transport.batches["stdin"]
	if len(got) != 3 {
		t.Fatalf("tracked %d events, want 3: %v", len(got), got)
	}
	if got[0].(map[string]any)["msg"] != "started" {
		t.Errorf("event 0 = %v", got[0])
	}
	if got[1].(map[string]any)["message"] != "plain text line" {
		t.Errorf("event 1 = %v", got[1])
	}
	if arr, ok := got[2].([]any); !ok || len(arr) != 2 {
		t.Errorf("event 2 = %v", got[2])
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled slog.Level
	}{
		{"debug", "json", slog.LevelDebug},
		{"info", "text", slog.LevelInfo},
		{"warn", "dev", slog.LevelWarn},
		{"error", "json", slog.LevelError},
		{"bogus", "bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		logger := setupLogger(tt.level, tt.format)
		if !logger.Enabled(context.Background(), tt.enabled) {
			t.Errorf("setupLogger(%q, %q): level %v should be enabled", tt.level, tt.format, tt.enabled)
		}
		if logger.Enabled(context.Background(), tt.enabled-1) {
			t.Errorf("setupLogger(%q, %q): level %v should be disabled", tt.level, tt.format, tt.enabled-1)
		}
	}
}

func TestBuildSink_HTTP(t *testing.T) {
	cfg := config.Config{Sink: config.SinkHTTP}
	cfg.Client.IngestionEndpoint = "http://localhost:1"

	s, err := buildSink(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildSink: %v", err)
	}
	defer s.close()

	if s.transport == nil {
		t.Error("transport should be set")
	}
}

func TestBuildSink_SQL(t *testing.T) {
	cfg := config.Config{Sink: config.SinkSQL}
	cfg.SQL.Dialect = "sqlite"
	cfg.SQL.Path = t.TempDir() + "/agent.db"

	s, err := buildSink(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildSink: %v", err)
	}
	defer s.close()

	if status, err := s.transport.Send(context.Background(), "logs", []any{"x"}); err != nil || status != 0 {
		t.Errorf("Send() = %d, %v", status, err)
	}
	if err := s.checks["sql"](context.Background()); err != nil {
		t.Errorf("sql health check: %v", err)
	}
}

func TestBuildSink_Unknown(t *testing.T) {
	if _, err := buildSink(context.Background(), config.Config{Sink: "kafka"}, slog.Default()); err == nil {
		t.Error("buildSink should reject unknown sinks")
	}
}

func TestNewGateway_LogsAreCapturedWithClient(t *testing.T) {
	prev := slog.Default()
	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	slog.SetDefault(base)
	t.Cleanup(func() { slog.SetDefault(prev) })

	transport := &captureTransport{}
	client, err := relogs.New(relogs.Config{
		WorkspaceID:  "ws",
		APIKey:       "k",
		DefaultTable: "agent",
		CaptureLogs:  true,
		Transport:    transport,
		Logger:       base,
	})
	if err != nil {
		t.Fatalf("relogs.New: %v", err)
	}

	server := newGateway(gateway.Config{Addr: "127.0.0.1:0"}, client, nil, nil)
	if err := server.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if !client.End(context.Background()) {
		t.Fatal("End() should reach quiescence")
	}

	var traces []string
	for _, payload := range transport.batches["agent"] {
		rec, ok := payload.(capture.Record)
		if !ok {
			t.Fatalf("payload type = %T, want capture.Record", payload)
		}
		traces = append(traces, rec.Trace)
		if rec.Trace == "shutting down gateway" && rec.TraceArguments["component"] != "gateway" {
			t.Errorf("component = %v, want gateway", rec.TraceArguments["component"])
		}
	}
	if !slices.Contains(traces, "shutting down gateway") {
		t.Errorf("gateway log not tracked, got %v", traces)
	}
	if slices.Contains(traces, "relogs client configured") {
		t.Error("client diagnostics should not be tracked")
	}
}

func TestCloseNATS(t *testing.T) {
	conn := &fakeNATSConn{flushErr: errors.New("timeout")}

	closeNATS(conn, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := strings.Join(conn.calls, ","); got != "flush,drain" {
		t.Errorf("calls = %q, want flush,drain", got)
	}
}

type fakeNATSConn struct {
	calls    []string
	flushErr error
}

func (f *fakeNATSConn) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("flush without deadline")
	}
	f.calls = append(f.calls, "flush")
	return f.flushErr
}

func (f *fakeNATSConn) Drain() error {
	f.calls = append(f.calls, "drain")
	return nil
}
