// Command relogs-agent runs a relogs client as a sidecar: it accepts events
// over a local HTTP gateway and, optionally, JSON lines on stdin, and ships
// them to the configured sink.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/SebastienMelki/relogs/internal/config"
	"github.com/SebastienMelki/relogs/internal/gateway"
	"github.com/SebastienMelki/relogs/internal/observability"
	"github.com/SebastienMelki/relogs/pkg/relogs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var stdinTable string
	var sink string
	var printConfig bool

	flagSet := pflag.NewFlagSet("relogs-agent", pflag.ContinueOnError)
	flagSet.StringVar(&stdinTable, "stdin-table", "", "track JSON lines read from stdin into this table")
	flagSet.StringVar(&sink, "sink", "", "override RELOGS_SINK (http, nats, s3, sql)")
	flagSet.BoolVar(&printConfig, "print-config", false, "log the effective configuration and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if sink != "" {
		cfg.Sink = sink
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if printConfig {
		logger.Info("effective configuration", "config", cfg)
		return nil
	}

	logger.Info("starting relogs agent",
		"sink", cfg.Sink,
		"log_level", cfg.LogLevel,
		"gateway_addr", cfg.Gateway.Addr,
	)

	obs, err := observability.New(cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			logger.Error("metrics shutdown error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	built, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer built.close()

	clientCfg := cfg.RelogsConfig()
	clientCfg.Transport = built.transport
	clientCfg.Logger = logger
	clientCfg.Meter = obs.Meter()

	client, err := relogs.New(clientCfg)
	if err != nil {
		return err
	}

	// With CaptureLogs set, slog.Default() now tracks into the client. The
	// client and the sink keep the base logger so delivery diagnostics are
	// not fed back into the buffer.
	baseLogger := logger
	logger = slog.Default()

	// First signal drains, second forces exit
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	doneCh := make(chan struct{})

	var server *gateway.Server
	if cfg.Gateway.Enabled {
		server = newGateway(cfg.Gateway, client, built.checks, obs)
		go func() {
			errCh <- server.Start()
		}()
	}

	if stdinTable != "" {
		stdinLogger := logger
		go func() {
			if err := trackLines(os.Stdin, stdinTable, client, stdinLogger); err != nil {
				stdinLogger.Error("stdin reader stopped", "error", err)
			}
			if server == nil {
				close(doneCh)
			}
		}()
	}

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("gateway error", "error", err)
		}
	case <-doneCh:
		logger.Info("stdin closed")
	}

	go func() {
		sig := <-sigCh
		baseLogger.Warn("received second signal, exiting without draining", "signal", sig)
		os.Exit(1)
	}()

	logger.Info("initiating graceful shutdown")

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway shutdown error", "error", err)
		}
		shutdownCancel()
	}

	drained := client.End(context.Background())
	logger = baseLogger
	if !drained {
		logger.Warn("agent stopped with undelivered events",
			"buffered", client.Buffered(),
			"in_flight", client.InFlight(),
		)
	}

	logger.Info("agent stopped")
	return nil
}

// newGateway builds the ingest server on slog.Default(), so its records are
// tracked when the client captures logs. obs may be nil.
func newGateway(cfg gateway.Config, client *relogs.Client, checks map[string]gateway.HealthCheck, obs *observability.Module) *gateway.Server {
	opts := gateway.Options{
		Tracker: client,
		Checks:  checks,
		Logger:  slog.Default(),
	}
	if obs != nil {
		opts.Metrics = obs.Metrics()
		opts.MetricsHandler = obs.MetricsHandler()
	}
	return gateway.NewServer(cfg, opts)
}

// trackLines tracks each stdin line: JSON values as decoded, anything else
// as {"message": line}.
func trackLines(r io.Reader, table string, client *relogs.Client, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var payload any
		if err := json.Unmarshal(line, &payload); err != nil {
			payload = map[string]any{"message": string(line)}
		}
		client.Track(payload, table)
		lines++
	}

	logger.Debug("stdin drained", "lines", lines)
	return scanner.Err()
}

// setupLogger creates a logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "dev":
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
		})
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
