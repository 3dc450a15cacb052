// Package client fetches raw thread-page documents over HTTP(S).
//
// The client owns everything up to and including the wire: building the
// page URL from the forum's path template, request headers (identity,
// cookie, referer), the response size cap, and transcoding legacy
// charsets to UTF-8. It returns the document exactly once decoded; it
// never parses, retries, or caches. Retry policy belongs to callers,
// which classify failures with IsRetryable.
package client
