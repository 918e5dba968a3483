// Package gateway exposes a local HTTP endpoint that feeds JSON events into
// a relogs client.
package gateway

import (
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	// Enabled starts the gateway
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// Addr is the address to listen on (e.g., ":8085")
	Addr string `env:"ADDR" envDefault:":8085"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`

	// MaxHeaderBytes is the maximum size of request headers
	MaxHeaderBytes int `env:"MAX_HEADER_BYTES" envDefault:"1048576"` // 1MB

	// MaxBodyBytes is the maximum size of a request body
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"5242880"` // 5MB

	// MaxEventsPerRequest caps the length of an array body
	MaxEventsPerRequest int `env:"MAX_EVENTS_PER_REQUEST" envDefault:"10000"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	// Shutdown timeout for graceful shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Enabled indicates whether rate limiting is enabled
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// RequestsPerSecond is the number of requests allowed per second
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"1000"`

	// BurstSize is the maximum burst size
	BurstSize int `env:"BURST_SIZE" envDefault:"2000"`
}
