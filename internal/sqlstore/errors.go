package sqlstore

import "errors"

// Sentinel errors for the sqlstore package.
var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrUnknownDialect     = errors.New("unknown SQL dialect")
	ErrEmptyPath          = errors.New("database path must not be empty")
)
