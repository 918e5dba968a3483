package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// MsgPublisher is the subset of jetstream.JetStream used to publish.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher publishes encoded batches to JetStream.
type Publisher struct {
	js     MsgPublisher
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a publisher for subjects under prefix.
func NewPublisher(js MsgPublisher, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "telemetry"
	}
	return &Publisher{
		js:     js,
		prefix: prefix,
		logger: logger.With("component", "publisher"),
	}
}

// Subject derives the subject for a workspace and table.
// Format: {prefix}.{workspace}.{table}.
func (p *Publisher) Subject(workspace, table string) (string, error) {
	ws := SanitizeSubjectToken(workspace)
	tbl := SanitizeSubjectToken(table)
	if ws == "" || tbl == "" {
		return "", fmt.Errorf("%w: workspace=%q table=%q", ErrEmptySubject, workspace, table)
	}
	return p.prefix + "." + ws + "." + tbl, nil
}

// Publish sends data to subject. msgID is set as Nats-Msg-Id so the stream
// drops duplicates within its duplicate window.
func (p *Publisher) Publish(ctx context.Context, subject, msgID string, data []byte, header nats.Header) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, vs := range header {
		for _, v := range vs {
			msg.Header.Add(k, v)
		}
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	ack, err := p.js.PublishMsg(ctx, msg, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}

	p.logger.Debug("batch published",
		"subject", subject,
		"msg_id", msgID,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)

	return nil
}

// SanitizeSubjectToken makes name usable as a single subject token:
// lowercase, with separators and wildcards replaced by underscores.
func SanitizeSubjectToken(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
