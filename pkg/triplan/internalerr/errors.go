package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRequest   = errors.New("invalid planning request")
	ErrInvalidPolicy    = errors.New("invalid relaxation policy")
	ErrCatalogAccess    = errors.New("catalog access failure")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
