package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store inserts batches into per-table SQL tables.
type Store struct {
	db      *sql.DB
	dialect dialect
	prefix  string
	logger  *slog.Logger

	// ensured caches tables created by this process
	ensured sync.Map
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sqlstore")

	driver, dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	logger.Info("connected to database", "dialect", driver, "database", databaseName(cfg))

	return New(db, cfg.Dialect, cfg.TablePrefix, logger), nil
}

// New wraps an open database.
func New(db *sql.DB, dialectName, tablePrefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: dialectFor(dialectName),
		prefix:  tablePrefix,
		logger:  logger,
	}
}

// TableName returns the SQL table used for a telemetry table.
func (s *Store) TableName(table string) string {
	return SanitizeIdentifier(s.prefix + table)
}

// EnsureTable creates the table for table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context, table string) (string, error) {
	name := s.TableName(table)
	if _, ok := s.ensured.Load(name); ok {
		return name, nil
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(quoteIdentifier(name))); err != nil {
		return "", fmt.Errorf("create table %s: %w", name, err)
	}

	s.ensured.Store(name, struct{}{})
	s.logger.Debug("table ready", "table", name)
	return name, nil
}

// InsertBatch writes payloads as rows (batchID, 0..n-1) in one transaction.
func (s *Store) InsertBatch(ctx context.Context, table, batchID string, receivedAt time.Time, payloads [][]byte) error {
	if len(payloads) == 0 {
		return nil
	}

	name, err := s.EnsureTable(ctx, table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (batch_id, seq, payload, received_at) VALUES (%s)",
		quoteIdentifier(name), s.placeholders(4))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	at := s.dialect.receivedAt(receivedAt)
	for i, payload := range payloads {
		if _, err := stmt.ExecContext(ctx, batchID, i, string(payload), at); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of rows stored for table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + quoteIdentifier(s.TableName(table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Ping checks if the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

func databaseName(cfg Config) string {
	if cfg.Dialect == DialectPostgres {
		return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	}
	return cfg.Path
}
