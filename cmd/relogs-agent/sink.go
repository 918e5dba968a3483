package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SebastienMelki/relogs/internal/archive"
	"github.com/SebastienMelki/relogs/internal/config"
	"github.com/SebastienMelki/relogs/internal/gateway"
	"github.com/SebastienMelki/relogs/internal/nats"
	"github.com/SebastienMelki/relogs/internal/sqlstore"
	"github.com/SebastienMelki/relogs/pkg/relogs"
	"github.com/SebastienMelki/relogs/pkg/relogs/transport/httptransport"
	"github.com/SebastienMelki/relogs/pkg/relogs/transport/natstransport"
	"github.com/SebastienMelki/relogs/pkg/relogs/transport/s3transport"
	"github.com/SebastienMelki/relogs/pkg/relogs/transport/sqltransport"
)

// sink is a transport plus what it needs at shutdown and for /health.
type sink struct {
	transport relogs.Transport
	checks    map[string]gateway.HealthCheck
	close     func()
}

// buildSink connects the transport selected by cfg.Sink.
func buildSink(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sink, error) {
	switch cfg.Sink {
	case config.SinkHTTP:
		return &sink{
			transport: httptransport.New(httptransport.Config{
				Endpoint:    cfg.Client.IngestionEndpoint,
				WorkspaceID: cfg.Client.WorkspaceID,
				APIKey:      cfg.Client.APIKey,
				Timeout:     cfg.HTTP.Timeout,
				MaxRetries:  cfg.HTTP.MaxRetries,
				Gzip:        cfg.HTTP.Gzip,
			}, logger),
			close: func() {},
		}, nil

	case config.SinkNATS:
		client, err := nats.NewClient(ctx, cfg.NATS.Config, logger)
		if err != nil {
			return nil, err
		}
		if _, err := client.Streams().EnsureStream(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ensure stream: %w", err)
		}

		transport, err := natstransport.New(client.Publisher(), cfg.Client.WorkspaceID, cfg.NATS.Codec, logger)
		if err != nil {
			client.Close()
			return nil, err
		}

		return &sink{
			transport: transport,
			checks:    map[string]gateway.HealthCheck{"nats": client.HealthCheck},
			close:     func() { closeNATS(client, logger) },
		}, nil

	case config.SinkS3:
		s3Client, err := archive.NewS3Client(ctx, cfg.Archive.S3, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Archive.S3.CreateBucket {
			if err := s3Client.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}

		transport, err := s3transport.New(s3Client, s3transport.Config{
			WorkspaceID: cfg.Client.WorkspaceID,
			Prefix:      s3Client.Prefix(),
			Format:      cfg.Archive.Format,
			Parquet:     cfg.Archive.Parquet,
		}, logger)
		if err != nil {
			return nil, err
		}

		return &sink{
			transport: transport,
			checks:    map[string]gateway.HealthCheck{"s3": s3Client.HealthCheck},
			close:     func() {},
		}, nil

	case config.SinkSQL:
		store, err := sqlstore.Open(ctx, cfg.SQL, logger)
		if err != nil {
			return nil, err
		}

		return &sink{
			transport: sqltransport.New(store, nil),
			checks:    map[string]gateway.HealthCheck{"sql": store.Ping},
			close: func() {
				if err := store.Close(); err != nil {
					logger.Error("database close error", "error", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSink, cfg.Sink)
	}
}

const natsFlushTimeout = 5 * time.Second

// natsConn is the part of the NATS client used at shutdown.
type natsConn interface {
	Flush(ctx context.Context) error
	Drain() error
}

// closeNATS waits for the server to process pending publishes, then drains
// the connection. A failed flush does not skip the drain.
func closeNATS(conn natsConn, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), natsFlushTimeout)
	defer cancel()

	if err := conn.Flush(ctx); err != nil {
		logger.Error("NATS flush error", "error", err)
	}
	if err := conn.Drain(); err != nil {
		logger.Error("NATS drain error", "error", err)
	}
}
