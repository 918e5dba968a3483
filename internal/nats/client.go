package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const healthCheckTimeout = 2 * time.Second

// Client is the agent's publish connection to a JetStream-enabled server.
// It hands out the Publisher used by the NATS sink and the StreamManager
// that provisions the telemetry stream at startup.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config Config
	logger *slog.Logger
}

// NewClient connects to cfg.URL and opens a JetStream context on it.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats-sink")

	conn, err := nats.Connect(cfg.URL, connectOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open JetStream: %w", err)
	}

	logger.Info("telemetry publish connection ready",
		"url", conn.ConnectedUrl(),
		"server_id", conn.ConnectedServerId(),
		"subject_prefix", cfg.SubjectPrefix,
	)

	return &Client{
		conn:   conn,
		js:     js,
		config: cfg,
		logger: logger,
	}, nil
}

// connectOptions maps Config onto connection options. Connection events are
// logged; publishes fail fast while disconnected and the batch is dropped.
func connectOptions(cfg Config, logger *slog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("telemetry publish connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("telemetry publish connection restored", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("telemetry publish connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS async error", "error", err)
		}),
	}
}

// Publisher returns a batch publisher rooted at the configured subject prefix.
func (c *Client) Publisher() *Publisher {
	return NewPublisher(c.js, c.config.SubjectPrefix, c.logger)
}

// Streams returns a manager for the telemetry stream.
func (c *Client) Streams() *StreamManager {
	return NewStreamManager(c.js, c.config.Stream, c.logger)
}

// Flush blocks until the server has acknowledged everything written on the
// connection, or ctx is done.
func (c *Client) Flush(ctx context.Context) error {
	return c.conn.FlushWithContext(ctx)
}

// Drain lets pending publishes complete, then closes the connection.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

// Close closes the connection immediately.
func (c *Client) Close() {
	c.conn.Close()
}

// HealthCheck reports whether the connection is up and JetStream answers.
// It backs the gateway's /health check for the NATS sink.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("%w, status: %s", ErrNotConnected, c.conn.Status())
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if _, err := c.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("JetStream unavailable: %w", err)
	}
	return nil
}
