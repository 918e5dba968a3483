// Package natstransport publishes batches to NATS JetStream, one message per
// batch on subject <prefix>.<workspace>.<table>.
package natstransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	relogsnats "github.com/SebastienMelki/relogs/internal/nats"
)

// Codec names.
const (
	CodecJSON     = "json"
	CodecProtobuf = "protobuf"
)

// StatusFailed is the status reported for a failed publish.
const StatusFailed = -1

// ErrUnknownCodec is returned by New for an unsupported codec name.
var ErrUnknownCodec = errors.New("natstransport: unknown codec")

// Publisher publishes one encoded batch.
type Publisher interface {
	Subject(workspace, table string) (string, error)
	Publish(ctx context.Context, subject, msgID string, data []byte, header nats.Header) error
}

// Transport encodes each batch and publishes it.
type Transport struct {
	publisher Publisher
	workspace string
	codec     string
	logger    *slog.Logger
}

// New creates a Transport. An empty codec means CodecJSON.
func New(publisher Publisher, workspace, codec string, logger *slog.Logger) (*Transport, error) {
	if codec == "" {
		codec = CodecJSON
	}
	if codec != CodecJSON && codec != CodecProtobuf {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		publisher: publisher,
		workspace: workspace,
		codec:     codec,
		logger:    logger.With("transport", "nats"),
	}, nil
}

// Send publishes batch. It reports 0 on success and StatusFailed otherwise.
func (t *Transport) Send(ctx context.Context, table string, batch []any) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	subject, err := t.publisher.Subject(t.workspace, table)
	if err != nil {
		return StatusFailed, err
	}

	data, contentType, err := t.encode(batch)
	if err != nil {
		return StatusFailed, err
	}

	header := nats.Header{}
	header.Set("Content-Type", contentType)
	header.Set("Relogs-Table", table)
	header.Set("Relogs-Count", strconv.Itoa(len(batch)))

	if err := t.publisher.Publish(ctx, subject, uuid.NewString(), data, header); err != nil {
		return StatusFailed, err
	}
	return 0, nil
}

func (t *Transport) encode(batch []any) ([]byte, string, error) {
	if t.codec == CodecProtobuf {
		data, err := EncodeProtobuf(batch)
		return data, "application/protobuf", err
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return nil, "", fmt.Errorf("natstransport: marshal batch: %w", err)
	}
	return data, "application/json", nil
}

// EncodeProtobuf encodes batch as a google.protobuf.ListValue. Payloads are
// normalized through JSON first so structs and typed maps are accepted.
func EncodeProtobuf(batch []any) ([]byte, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("natstransport: marshal batch: %w", err)
	}

	var generic []any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("natstransport: normalize batch: %w", err)
	}

	list, err := structpb.NewList(generic)
	if err != nil {
		return nil, fmt.Errorf("natstransport: build list value: %w", err)
	}

	data, err := proto.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("natstransport: marshal list value: %w", err)
	}
	return data, nil
}

var _ Publisher = (*relogsnats.Publisher)(nil)
