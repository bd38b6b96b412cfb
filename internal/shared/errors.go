package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization errors
	ErrUnauthorized = fmt.Errorf("unauthorized")

	// Import errors
	ErrMalformedInput     = fmt.Errorf("malformed input")
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")

	// Catalog errors
	ErrNotFound           = fmt.Errorf("not found")
	ErrCatalogUnavailable = fmt.Errorf("catalog unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
