// Package nats connects to NATS JetStream and publishes telemetry batches.
package nats

import (
	"time"
)

// Config holds NATS connection and stream configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222")
	URL string `env:"URL" envDefault:"nats://localhost:4222"`

	// Name is the client connection name for monitoring
	Name string `env:"CLIENT_NAME" envDefault:"relogs-agent"`

	// MaxReconnects is the maximum number of reconnection attempts
	MaxReconnects int `env:"MAX_RECONNECTS" envDefault:"60"`

	// ReconnectWait is the time to wait between reconnection attempts
	ReconnectWait time.Duration `env:"RECONNECT_WAIT" envDefault:"2s"`

	// Timeout is the connection timeout
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// SubjectPrefix is the first token of every published subject
	SubjectPrefix string `env:"SUBJECT_PREFIX" envDefault:"telemetry"`

	// Stream configuration
	Stream StreamConfig `envPrefix:"STREAM_"`
}

// StreamConfig holds JetStream stream configuration.
type StreamConfig struct {
	// Name is the stream name
	Name string `env:"NAME" envDefault:"RELOGS_TELEMETRY"`

	// Subjects are the subjects to capture
	Subjects []string `env:"SUBJECTS" envDefault:"telemetry.>"`

	// MaxAge is the maximum age of messages in the stream
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"72h"`

	// MaxBytes is the maximum size of the stream in bytes
	MaxBytes int64 `env:"MAX_BYTES" envDefault:"1073741824"` // 1GB

	// Replicas is the number of replicas for the stream
	Replicas int `env:"REPLICAS" envDefault:"1"`

	// Storage is the storage type (file or memory)
	Storage string `env:"STORAGE" envDefault:"file"`

	// DuplicateWindow is how long message ids are remembered for dedup
	DuplicateWindow time.Duration `env:"DUPLICATE_WINDOW" envDefault:"2m"`
}
