package relogs

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ConfigurationError.
var (
	ErrMissingCredentials   = errors.New("workspace id and api key are required")
	ErrDefaultTableRequired = errors.New("default table is required when log capture is enabled")
	ErrInvalidEndpoint      = errors.New("ingestion endpoint must be an absolute http(s) URL")
)

// ConfigurationError reports a configuration problem detected by New.
// It is the only error New returns for bad input; use errors.Is with the
// sentinels above to tell the causes apart.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("relogs: invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
