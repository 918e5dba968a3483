// Package s3transport archives each batch as one object in S3-compatible
// storage.
package s3transport

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SebastienMelki/relogs/internal/archive"
)

// StatusFailed is the status reported for a failed upload.
const StatusFailed = -1

// Uploader stores one object.
type Uploader interface {
	Upload(ctx context.Context, key string, obj archive.Object) error
}

// Config configures the S3 transport.
type Config struct {
	WorkspaceID string
	Prefix      string
	Format      string
	Parquet     archive.ParquetConfig

	// Clock timestamps rows and picks the hour partition (default: real clock)
	Clock clockwork.Clock
}

// Transport encodes batches and uploads them.
type Transport struct {
	uploader  Uploader
	encoder   archive.Encoder
	workspace string
	prefix    string
	clock     clockwork.Clock
	logger    *slog.Logger
}

// New creates a Transport. It fails only for an unknown format.
func New(uploader Uploader, cfg Config, logger *slog.Logger) (*Transport, error) {
	encoder, err := archive.NewEncoder(cfg.Format, cfg.Parquet)
	if err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		uploader:  uploader,
		encoder:   encoder,
		workspace: cfg.WorkspaceID,
		prefix:    cfg.Prefix,
		clock:     cfg.Clock,
		logger:    logger.With("transport", "s3"),
	}, nil
}

// Send writes batch as one object. It reports 0 on success and
// StatusFailed otherwise.
func (t *Transport) Send(ctx context.Context, table string, batch []any) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	now := t.clock.Now()
	batchID := uuid.NewString()

	rows, err := archive.Rows(batchID, t.workspace, table, now, batch)
	if err != nil {
		return StatusFailed, err
	}

	obj, err := t.encoder.Encode(rows)
	if err != nil {
		return StatusFailed, err
	}

	key := archive.ObjectKey(t.prefix, t.workspace, table, now, batchID, obj.Extension)
	if err := t.uploader.Upload(ctx, key, obj); err != nil {
		return StatusFailed, err
	}

	t.logger.Debug("batch archived", "key", key, "rows", len(rows), "size_bytes", len(obj.Data))
	return 0, nil
}

var _ Uploader = (*archive.S3Client)(nil)
