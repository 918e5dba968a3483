package gateway

import "errors"

// Sentinel errors for the gateway package.
var (
	ErrEmptyBody       = errors.New("request body is empty")
	ErrInvalidJSON     = errors.New("body must be a JSON object or array")
	ErrAtLeastOneEvent = errors.New("at least one event is required")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum event count")
	ErrTableRequired   = errors.New("table is required")
)
