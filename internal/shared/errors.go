package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Catalog errors
	//
	// ErrCatalogUnavailable is the only failure that aborts a whole sync
	// invocation; the per-replica errors below are logged and skipped.
	ErrCatalogUnavailable = fmt.Errorf("catalog unavailable")
	ErrScopeUnavailable   = fmt.Errorf("replica scope unavailable")
	ErrPlaylistRead       = fmt.Errorf("playlist read failed")
	ErrPlaylistWrite      = fmt.Errorf("playlist write failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrAPIRequest         = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
