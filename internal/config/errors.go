package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and name the specific
// option that is wrong. They are package-level sentinels so that callers
// can branch with errors.Is() while still getting a readable message.
var (
	// ErrNoTarget is returned when no thread id is specified.
	ErrNoTarget = errors.New("no target specified: provide at least one thread id")

	// ErrNoOrigin is returned when no forum origin is configured.
	// The origin comes from --origin, a forum profile, or the config
	// file's default profile.
	ErrNoOrigin = errors.New("no forum origin configured: set --origin or a forum profile")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPageNumber is returned when the requested page number is
	// less than 1. Forum pages are 1-based.
	ErrInvalidPageNumber = errors.New("invalid page number: must be 1 or greater")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	// Use 0 to disable caching rather than a negative value.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be non-negative")

	// ErrInvalidRetryAttempts is returned when the retry attempt count is
	// less than 1. The count includes the first attempt.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be 1 or greater")

	// ErrInvalidBackoff is returned when the backoff bounds are unusable:
	// the minimum must be positive and the maximum at least the minimum.
	ErrInvalidBackoff = errors.New("invalid backoff bounds: min must be positive and max >= min")

	// ErrInvalidPageDelay is returned when the page delay is negative.
	// Use 0 for no delay between page fetches.
	ErrInvalidPageDelay = errors.New("invalid page delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page bound is negative.
	// Use 0 for an unbounded thread walk.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidConcurrency is returned when the batch concurrency is not
	// positive. A concurrency of zero would process no threads.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative. Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingOutputFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json and --markdown cannot be used together")

	// ErrConflictingProxyModes is returned when both --tor and --proxy
	// are specified. The embedded Tor daemon provides its own proxy.
	ErrConflictingProxyModes = errors.New("conflicting proxy modes: --tor and --proxy cannot be used together")
)
