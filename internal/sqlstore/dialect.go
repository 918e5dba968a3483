package sqlstore

import (
	"fmt"
	"strings"
	"time"
)

// dialect holds the statements that differ between databases.
type dialect interface {
	placeholder(n int) string
	createTable(quoted string) string
	receivedAt(t time.Time) any
}

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) createTable(quoted string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quoted + ` (
    batch_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payload JSONB NOT NULL,
    received_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (batch_id, seq)
)`
}

func (postgresDialect) receivedAt(t time.Time) any { return t.UTC() }

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) createTable(quoted string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quoted + ` (
    batch_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payload TEXT NOT NULL,
    received_at INTEGER NOT NULL,
    PRIMARY KEY (batch_id, seq)
)`
}

// SQLite keeps unix milliseconds.
func (sqliteDialect) receivedAt(t time.Time) any { return t.UnixMilli() }

func dialectFor(name string) dialect {
	if name == DialectPostgres {
		return postgresDialect{}
	}
	return sqliteDialect{}
}

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLen = 63

// SanitizeIdentifier maps a telemetry table name to a safe SQL identifier:
// lowercase letters, digits and underscores, not starting with a digit.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	id := b.String()
	if id == "" {
		id = "_default"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "t_" + id
	}
	if len(id) > maxIdentifierLen {
		id = id[:maxIdentifierLen]
	}
	return id
}

func quoteIdentifier(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
