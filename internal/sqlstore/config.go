// Package sqlstore stores telemetry batches in SQL tables, one table per
// telemetry table, on PostgreSQL or SQLite.
package sqlstore

import (
	"fmt"
	"time"
)

// Dialect names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config holds SQL storage settings.
type Config struct {
	// Dialect selects the driver (postgres or sqlite)
	Dialect string `env:"DIALECT" envDefault:"sqlite"`

	// Path is the SQLite database file
	Path string `env:"PATH" envDefault:"relogs.db"`

	// Host is the PostgreSQL host
	Host string `env:"HOST" envDefault:"localhost"`

	// Port is the PostgreSQL port
	Port int `env:"PORT" envDefault:"5432"`

	// User is the database user
	User string `env:"USER" envDefault:"relogs"`

	// Password is the database password
	Password string `env:"PASSWORD" envDefault:"relogs"`

	// Name is the database name
	Name string `env:"NAME" envDefault:"relogs"`

	// SSLMode is the SSL mode (disable, require, verify-ca, verify-full)
	SSLMode string `env:"SSL_MODE" envDefault:"disable"`

	// TablePrefix is prepended to every created table name
	TablePrefix string `env:"TABLE_PREFIX" envDefault:""`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `env:"MAX_OPEN_CONNS" envDefault:"10"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `env:"MAX_IDLE_CONNS" envDefault:"5"`

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// dsn returns the driver name and data source for the configured dialect.
func (c Config) dsn() (driver, dsn string, err error) {
	switch c.Dialect {
	case DialectPostgres:
		return "postgres", fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		), nil
	case DialectSQLite, "":
		if c.Path == "" {
			return "", "", ErrEmptyPath
		}
		// WAL mode for concurrent access, 5s busy timeout for lock contention.
		return "sqlite", c.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownDialect, c.Dialect)
	}
}
